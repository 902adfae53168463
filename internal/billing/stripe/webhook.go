package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/receptionist/internal/billing/domain"
	"github.com/smallbiznis/receptionist/internal/clock"
)

const defaultTolerance = 5 * time.Minute

// WebhookVerifier checks Stripe-Signature headers and decodes subscription
// events.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
	clock     clock.Clock
}

func NewWebhookVerifier(secret string, clk clock.Clock) (*WebhookVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, domain.ErrNotConfigured
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &WebhookVerifier{secret: secret, tolerance: defaultTolerance, clock: clk}, nil
}

func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	if v.tolerance > 0 {
		unix, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return domain.ErrInvalidSignature
		}
		age := v.clock.Now().Sub(time.Unix(unix, 0))
		if age > v.tolerance || age < -v.tolerance {
			return domain.ErrInvalidSignature
		}
	}

	expected := sign(v.secret, timestamp, payload)
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func (v *WebhookVerifier) Parse(payload []byte) (*domain.SubscriptionEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	switch eventType := strings.TrimSpace(event.Type); eventType {
	case domain.EventCheckoutCompleted:
		return parseCheckoutSession(event)
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		return parseSubscription(event)
	default:
		return nil, domain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID                string         `json:"id"`
	Customer          string         `json:"customer"`
	Subscription      string         `json:"subscription"`
	ClientReferenceID string         `json:"client_reference_id"`
	Mode              string         `json:"mode"`
	Metadata          map[string]any `json:"metadata"`
}

type stripeSubscription struct {
	ID       string         `json:"id"`
	Customer string         `json:"customer"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func parseCheckoutSession(event stripeEvent) (*domain.SubscriptionEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if session.Mode != "" && session.Mode != "subscription" {
		return nil, domain.ErrEventIgnored
	}

	businessID := readMetadataValue(session.Metadata, "business_id")
	if businessID == "" {
		businessID = strings.TrimSpace(session.ClientReferenceID)
	}
	if businessID == "" && strings.TrimSpace(session.Customer) == "" {
		return nil, domain.ErrInvalidPayload
	}

	return &domain.SubscriptionEvent{
		ID:             event.ID,
		Type:           domain.EventCheckoutCompleted,
		CustomerID:     strings.TrimSpace(session.Customer),
		SubscriptionID: strings.TrimSpace(session.Subscription),
		BusinessID:     businessID,
		Status:         "active",
	}, nil
}

func parseSubscription(event stripeEvent) (*domain.SubscriptionEvent, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.Customer) == "" {
		return nil, domain.ErrInvalidPayload
	}

	status := normalizeStatus(sub.Status)
	if event.Type == domain.EventSubscriptionDeleted {
		status = "canceled"
	}

	var priceID string
	if len(sub.Items.Data) > 0 {
		priceID = strings.TrimSpace(sub.Items.Data[0].Price.ID)
	}

	return &domain.SubscriptionEvent{
		ID:             event.ID,
		Type:           event.Type,
		CustomerID:     strings.TrimSpace(sub.Customer),
		SubscriptionID: strings.TrimSpace(sub.ID),
		BusinessID:     readMetadataValue(sub.Metadata, "business_id"),
		Status:         status,
		PriceID:        priceID,
	}, nil
}

// normalizeStatus folds Stripe's subscription states into the four the
// business record tracks.
func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return "active"
	case "trialing":
		return "trialing"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return "past_due"
	}
}

func sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%s.%s", timestamp, string(payload))))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a Stripe-Signature value for payload.
func SignatureHeader(secret string, payload []byte, ts time.Time) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, sign(secret, timestamp, payload))
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	}
	return ""
}
