package domain

import (
	"context"
	"net/http"
)

// Gateway is the billing provider API used by the service.
type Gateway interface {
	FindOrCreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ChargeOneOff(ctx context.Context, charge OneOffCharge) (string, error)
}

// WebhookVerifier authenticates and decodes provider webhooks.
type WebhookVerifier interface {
	Verify(payload []byte, headers http.Header) error
	Parse(payload []byte) (*SubscriptionEvent, error)
}
