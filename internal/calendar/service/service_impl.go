package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/receptionist/internal/calendar/domain"
	"github.com/smallbiznis/receptionist/internal/calendar/sealer"
	"github.com/smallbiznis/receptionist/internal/clock"
	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/smallbiznis/receptionist/internal/observability/metrics"
	obstracing "github.com/smallbiznis/receptionist/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultExpiresIn = 3600
	exchangeTimeout  = 15 * time.Second
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Config     config.Config
	Sealer     *sealer.Sealer   `optional:"true"`
	HTTPClient *http.Client     `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	google       config.GoogleConfig
	sealer       *sealer.Sealer
	httpClient   *http.Client
	clock        clock.Clock
	metrics      *metrics.Metrics
	dashboardURL string
}

func New(p Params) domain.Service {
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: exchangeTimeout}
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("calendar.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		google:       p.Config.Google,
		sealer:       p.Sealer,
		httpClient:   obstracing.WrapHTTPClient(client),
		clock:        clk,
		metrics:      p.Metrics,
		dashboardURL: strings.TrimRight(p.Config.DashboardURL, "/") + "/app",
	}
}

func (s *Service) Start(ctx context.Context, businessID string) (domain.StartResult, error) {
	businessID = strings.TrimSpace(businessID)
	if _, err := snowflake.ParseString(businessID); err != nil || businessID == "" {
		return domain.StartResult{}, domain.ErrInvalidBusinessID
	}

	if strings.TrimSpace(s.google.ClientID) == "" {
		s.log.Warn("google client id not configured, calendar integration unavailable")
		return domain.StartResult{
			Available: false,
			Error:     "Google Calendar integration is not configured on this server",
			Detail:    "Contact your administrator to enable Google Calendar integration",
		}, nil
	}
	if strings.TrimSpace(s.google.RedirectURI) == "" || s.sealer == nil {
		s.log.Warn("google redirect uri or token key not configured, calendar integration unavailable")
		return domain.StartResult{
			Available: false,
			Error:     "Google Calendar redirect URI not configured",
			Detail:    "Contact your administrator to enable Google Calendar integration",
		}, nil
	}

	state, err := s.sealer.SignState(businessID)
	if err != nil {
		return domain.StartResult{}, err
	}

	authURL, err := url.Parse(s.google.AuthURL)
	if err != nil {
		return domain.StartResult{}, err
	}
	query := authURL.Query()
	query.Set("client_id", s.google.ClientID)
	query.Set("redirect_uri", s.google.RedirectURI)
	query.Set("response_type", "code")
	query.Set("scope", domain.GoogleCalendarScope)
	query.Set("access_type", "offline")
	query.Set("prompt", "consent")
	query.Set("state", state)
	authURL.RawQuery = query.Encode()

	s.log.Info("redirecting to google authorization", zap.String("business_id", businessID))
	return domain.StartResult{Available: true, URL: authURL.String()}, nil
}

// Callback never fails: every outcome is encoded in the returned dashboard
// URL as success=calendar_connected or error=<code>&details=<detail>.
func (s *Service) Callback(ctx context.Context, req domain.CallbackRequest) string {
	if providerErr := strings.TrimSpace(req.Error); providerErr != "" {
		s.log.Warn("calendar authorization cancelled", zap.String("error", providerErr))
		return s.failure(ctx, domain.CodeCancelled, providerErr)
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return s.failure(ctx, domain.CodeFailed, "missing_code")
	}
	if strings.TrimSpace(req.State) == "" {
		return s.failure(ctx, domain.CodeFailed, "missing_state")
	}
	if s.sealer == nil || s.google.ClientID == "" || s.google.ClientSecret == "" {
		return s.failure(ctx, domain.CodeConfigurationError, "")
	}

	businessID, err := s.sealer.VerifyState(req.State)
	if err != nil {
		s.log.Warn("calendar state rejected", zap.Error(err))
		return s.failure(ctx, domain.CodeFailed, "invalid_state")
	}

	grant, err := s.exchangeCode(ctx, code)
	if err != nil {
		var exchangeErr *exchangeError
		if errors.As(err, &exchangeErr) {
			s.log.Error("calendar token exchange rejected",
				zap.String("business_id", businessID),
				zap.Int("status", exchangeErr.status),
			)
			return s.failure(ctx, domain.CodeTokenExchangeFailed, "")
		}
		s.log.Error("calendar token exchange failed", zap.String("business_id", businessID), zap.Error(err))
		return s.failure(ctx, domain.CodeNetworkError, "")
	}
	if grant.AccessToken == "" {
		return s.failure(ctx, domain.CodeNoAccessToken, "")
	}
	if grant.RefreshToken == "" {
		s.log.Warn("calendar grant has no refresh token", zap.String("business_id", businessID))
	}

	if err := s.storeGrant(ctx, businessID, grant); err != nil {
		s.log.Error("failed to store calendar grant", zap.String("business_id", businessID), zap.Error(err))
		return s.failure(ctx, domain.CodeInternalError, "")
	}

	s.metrics.RecordCalendarConnection(ctx, "connected")
	s.log.Info("calendar connected", zap.String("business_id", businessID))
	return s.dashboardURL + "?success=" + domain.CodeConnected
}

func (s *Service) Status(ctx context.Context, businessID string) (domain.Status, error) {
	token, err := s.repo.FindByBusinessID(ctx, s.db, strings.TrimSpace(businessID))
	if err != nil {
		return domain.Status{}, err
	}
	if token == nil {
		return domain.Status{Connected: false, Message: "No Google Calendar connected"}, nil
	}
	if !token.IsConnected {
		return domain.Status{Connected: false, Message: "Google Calendar was disconnected"}, nil
	}

	expiresAt := token.ExpiresAt.UTC()
	return domain.Status{
		Connected:  true,
		Message:    "Google Calendar is connected",
		ExpiresAt:  &expiresAt,
		IsExpired:  expiresAt.Before(s.clock.Now()),
		CanRefresh: token.RefreshTokenEncrypted != "",
		Scope:      token.Scope,
	}, nil
}

func (s *Service) IsConnected(ctx context.Context, businessID string) (bool, error) {
	status, err := s.Status(ctx, businessID)
	if err != nil {
		return false, err
	}
	return status.Connected, nil
}

// Disconnect marks the grant inactive and keeps the row.
func (s *Service) Disconnect(ctx context.Context, businessID string) error {
	token, err := s.repo.FindByBusinessID(ctx, s.db, strings.TrimSpace(businessID))
	if err != nil || token == nil {
		return err
	}
	token.IsConnected = false
	token.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, token); err != nil {
		return err
	}
	s.log.Info("calendar disconnected", zap.String("business_id", businessID))
	return nil
}

type tokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

type exchangeError struct {
	status int
}

func (e *exchangeError) Error() string {
	return "token exchange returned " + http.StatusText(e.status)
}

func (s *Service) exchangeCode(ctx context.Context, code string) (*tokenGrant, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", s.google.ClientID)
	form.Set("client_secret", s.google.ClientSecret)
	form.Set("redirect_uri", s.google.RedirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.google.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &exchangeError{status: resp.StatusCode}
	}

	var grant tokenGrant
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, &exchangeError{status: resp.StatusCode}
	}
	return &grant, nil
}

func (s *Service) storeGrant(ctx context.Context, businessID string, grant *tokenGrant) error {
	accessSealed, err := s.sealer.Seal(grant.AccessToken)
	if err != nil {
		return err
	}
	refreshSealed, err := s.sealer.Seal(grant.RefreshToken)
	if err != nil {
		return err
	}

	expiresIn := grant.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	tokenType := grant.TokenType
	if tokenType == "" {
		tokenType = domain.DefaultTokenType
	}
	now := s.clock.Now().UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByBusinessID(ctx, tx, businessID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.AccessTokenEncrypted = accessSealed
			if refreshSealed != "" {
				existing.RefreshTokenEncrypted = refreshSealed
			}
			existing.TokenType = tokenType
			existing.Scope = grant.Scope
			existing.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
			existing.IsConnected = true
			existing.UpdatedAt = now
			return s.repo.Update(ctx, tx, existing)
		}

		return s.repo.Insert(ctx, tx, &domain.Token{
			ID:                    s.genID.Generate(),
			BusinessID:            businessID,
			AccessTokenEncrypted:  accessSealed,
			RefreshTokenEncrypted: refreshSealed,
			TokenType:             tokenType,
			Scope:                 grant.Scope,
			ExpiresAt:             now.Add(time.Duration(expiresIn) * time.Second),
			IsConnected:           true,
			CreatedAt:             now,
			UpdatedAt:             now,
		})
	})
}

func (s *Service) failure(ctx context.Context, code, detail string) string {
	s.metrics.RecordCalendarConnection(ctx, code)
	query := url.Values{}
	query.Set("error", code)
	if detail != "" {
		query.Set("details", detail)
	}
	return s.dashboardURL + "?" + query.Encode()
}
