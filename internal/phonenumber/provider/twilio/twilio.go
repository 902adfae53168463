package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	obstracing "github.com/smallbiznis/receptionist/internal/observability/tracing"
	"github.com/smallbiznis/receptionist/internal/phonenumber/domain"
)

const (
	ProviderName   = "twilio"
	apiVersion     = "2010-04-01"
	defaultAPIBase = "https://api.twilio.com"
	searchPageSize = "10"
)

// Twilio error codes that mean the requested number cannot be bought.
var unavailableCodes = map[int]struct{}{
	21421: {},
	21422: {},
	21452: {},
}

type Config struct {
	AccountSID string
	AuthToken  string
	APIBase    string
}

type Provider struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config, client *http.Client) (*Provider, error) {
	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio credentials are required")
	}
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{
		cfg:        cfg,
		httpClient: obstracing.WrapHTTPClient(client),
	}, nil
}

func (p *Provider) Name() string { return ProviderName }

// APIError is a non-2xx response from the Twilio REST API.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: %d %s (status %d)", e.Code, e.Message, e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	if target != domain.ErrNumberUnavailable {
		return false
	}
	_, ok := unavailableCodes[e.Code]
	return ok
}

type availableNumbersResponse struct {
	AvailablePhoneNumbers []struct {
		PhoneNumber  string `json:"phone_number"`
		FriendlyName string `json:"friendly_name"`
		Lata         string `json:"lata"`
		RateCenter   string `json:"rate_center"`
		Region       string `json:"region"`
		Locality     string `json:"locality"`
	} `json:"available_phone_numbers"`
}

type incomingNumberResponse struct {
	SID         string `json:"sid"`
	PhoneNumber string `json:"phone_number"`
}

func (p *Provider) Search(ctx context.Context, query domain.SearchQuery) ([]domain.Candidate, error) {
	region := strings.ToUpper(strings.TrimSpace(query.Region))
	if region == "" {
		region = domain.DefaultRegion
	}

	params := url.Values{}
	params.Set("PageSize", searchPageSize)
	switch code := strings.TrimSpace(query.AreaCode); query.Type() {
	case domain.QueryTypePostalCode:
		params.Set("InPostalCode", code)
	case domain.QueryTypeAreaCode:
		params.Set("AreaCode", code)
	}

	endpoint := p.accountURL("AvailablePhoneNumbers", url.PathEscape(region), "Local.json") + "?" + params.Encode()
	var payload availableNumbersResponse
	if err := p.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(payload.AvailablePhoneNumbers))
	for _, n := range payload.AvailablePhoneNumbers {
		out = append(out, domain.Candidate{
			PhoneNumber:  n.PhoneNumber,
			FriendlyName: n.FriendlyName,
			Lata:         n.Lata,
			RateCenter:   n.RateCenter,
			Region:       n.Region,
			Locality:     n.Locality,
		})
	}
	return out, nil
}

func (p *Provider) Purchase(ctx context.Context, number, voiceURL string) (domain.PurchasedNumber, error) {
	form := url.Values{}
	form.Set("PhoneNumber", strings.TrimSpace(number))
	if voiceURL != "" {
		form.Set("VoiceUrl", voiceURL)
	}

	var payload incomingNumberResponse
	if err := p.do(ctx, http.MethodPost, p.accountURL("IncomingPhoneNumbers.json"), form, &payload); err != nil {
		return domain.PurchasedNumber{}, err
	}
	if payload.SID == "" {
		return domain.PurchasedNumber{}, errors.New("twilio: purchase response missing sid")
	}
	if payload.PhoneNumber == "" {
		payload.PhoneNumber = strings.TrimSpace(number)
	}
	return domain.PurchasedNumber{PhoneNumber: payload.PhoneNumber, SID: payload.SID}, nil
}

// Release deletes the incoming number. A number Twilio no longer knows is
// treated as released.
func (p *Provider) Release(ctx context.Context, sid string) error {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil
	}
	err := p.do(ctx, http.MethodDelete, p.accountURL("IncomingPhoneNumbers", url.PathEscape(sid)+".json"), nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (p *Provider) accountURL(parts ...string) string {
	segments := append([]string{p.cfg.APIBase, apiVersion, "Accounts", url.PathEscape(p.cfg.AccountSID)}, parts...)
	return strings.Join(segments, "/")
}

func (p *Provider) do(ctx context.Context, method, endpoint string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
