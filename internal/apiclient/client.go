// Package apiclient talks to the receptionist HTTP API on behalf of the
// onboarding wizard and the dashboard activation control.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/receptionist/internal/activation"
	obstracing "github.com/smallbiznis/receptionist/internal/observability/tracing"
	"github.com/smallbiznis/receptionist/internal/onboarding"
	"go.uber.org/zap"
)

var (
	ErrMissingBaseURL = errors.New("missing_base_url")
	ErrNoBusiness     = errors.New("no_business")
)

type Config struct {
	BaseURL string
	Token   string
	// Timeout bounds each call. Zero waits indefinitely.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	log        *zap.Logger
}

var (
	_ onboarding.Backend = (*Client)(nil)
	_ activation.Backend = (*Client)(nil)
)

func New(cfg Config, log *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    base,
		token:      strings.TrimSpace(cfg.Token),
		timeout:    cfg.Timeout,
		httpClient: obstracing.WrapHTTPClient(httpClient),
		log:        log.Named("apiclient"),
	}, nil
}

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Type    string
	Message string
	Fields  []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// Is maps HTTP statuses onto the onboarding failure signals.
func (e *Error) Is(target error) bool {
	switch target {
	case onboarding.ErrConflict:
		return e.Status == http.StatusConflict
	case onboarding.ErrPayment:
		return e.Status == http.StatusPaymentRequired
	case onboarding.ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case onboarding.ErrNotFound:
		return e.Status == http.StatusNotFound
	case onboarding.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case onboarding.ErrUnavailable:
		return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
	}
	return false
}

type errorEnvelope struct {
	Error struct {
		Type    string       `json:"type"`
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w: %w", method, path, onboarding.ErrUnavailable, err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &Error{Status: resp.StatusCode}
		var env errorEnvelope
		if len(raw) > 0 && json.Unmarshal(raw, &env) == nil {
			apiErr.Type = env.Error.Type
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Errors
		}
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

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

type businessPayload struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	PhoneNumber         string `json:"phone_number"`
	SubscriptionStatus  string `json:"subscription_status"`
	MinutesUsed         int    `json:"minutes_used"`
	MinutesLimit        int    `json:"minutes_limit"`
	ReceptionistEnabled bool   `json:"receptionist_enabled"`
}

func (b businessPayload) record() activation.Record {
	return activation.Record{
		HasPhoneNumber:     strings.TrimSpace(b.PhoneNumber) != "",
		SubscriptionStatus: b.SubscriptionStatus,
		MinutesUsed:        b.MinutesUsed,
		MinutesLimit:       b.MinutesLimit,
		Enabled:            b.ReceptionistEnabled,
	}
}
