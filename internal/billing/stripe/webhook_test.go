package stripe

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/receptionist/internal/billing/domain"
	"github.com/smallbiznis/receptionist/internal/clock"
)

func TestVerifySignature(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier, err := NewWebhookVerifier("whsec_test", clock.NewFakeClock(now))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	payload := []byte(`{"id":"evt_123","type":"customer.subscription.updated","data":{"object":{}}}`)

	headers := http.Header{}
	headers.Set("Stripe-Signature", SignatureHeader("whsec_test", payload, now))
	if err := verifier.Verify(payload, headers); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	headers.Set("Stripe-Signature", SignatureHeader("wrong", payload, now))
	if err := verifier.Verify(payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	headers.Set("Stripe-Signature", SignatureHeader("whsec_test", payload, now.Add(-time.Hour)))
	if err := verifier.Verify(payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected stale signature to be rejected, got %v", err)
	}

	headers.Del("Stripe-Signature")
	if err := verifier.Verify(payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected missing signature to be rejected, got %v", err)
	}
}

func TestNewWebhookVerifierRequiresSecret(t *testing.T) {
	if _, err := NewWebhookVerifier("  ", nil); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestParseEvents(t *testing.T) {
	verifier, err := NewWebhookVerifier("whsec_test", nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tests := []struct {
		name       string
		payload    string
		wantErr    error
		wantStatus string
		wantPrice  string
		wantBiz    string
	}{{
		name:       "checkout completed",
		payload:    `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","customer":"cus_1","subscription":"sub_1","mode":"subscription","client_reference_id":"42","metadata":{}}}}`,
		wantStatus: "active",
		wantBiz:    "42",
	}, {
		name:       "subscription updated",
		payload:    `{"id":"evt_2","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"trialing","metadata":{"business_id":"42"},"items":{"data":[{"price":{"id":"price_professional"}}]}}}}`,
		wantStatus: "trialing",
		wantPrice:  "price_professional",
		wantBiz:    "42",
	}, {
		name:       "subscription unpaid",
		payload:    `{"id":"evt_3","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"unpaid"}}}`,
		wantStatus: "past_due",
	}, {
		name:       "subscription deleted",
		payload:    `{"id":"evt_4","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","customer":"cus_1","status":"active"}}}`,
		wantStatus: "canceled",
	}, {
		name:    "payment mode checkout ignored",
		payload: `{"id":"evt_5","type":"checkout.session.completed","data":{"object":{"id":"cs_2","customer":"cus_1","mode":"payment"}}}`,
		wantErr: domain.ErrEventIgnored,
	}, {
		name:    "unrelated type ignored",
		payload: `{"id":"evt_6","type":"invoice.paid","data":{"object":{}}}`,
		wantErr: domain.ErrEventIgnored,
	}, {
		name:    "missing id",
		payload: `{"type":"customer.subscription.updated"}`,
		wantErr: domain.ErrInvalidPayload,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := verifier.Parse([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if event.Status != tt.wantStatus {
				t.Fatalf("expected status %q, got %q", tt.wantStatus, event.Status)
			}
			if event.PriceID != tt.wantPrice {
				t.Fatalf("expected price %q, got %q", tt.wantPrice, event.PriceID)
			}
			if event.BusinessID != tt.wantBiz {
				t.Fatalf("expected business %q, got %q", tt.wantBiz, event.BusinessID)
			}
			if event.CustomerID != "cus_1" {
				t.Fatalf("expected customer cus_1, got %q", event.CustomerID)
			}
		})
	}
}
