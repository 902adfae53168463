package domain

import (
	"context"
	"errors"
	"net/http"
)

type CheckoutRequest struct {
	PriceID string
}

type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id,omitempty"`
}

type Service interface {
	Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
	Portal(ctx context.Context, returnURL string) (string, error)
	ChargeNumberFee(ctx context.Context, customerID, number string) error
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error
}

var (
	ErrNotConfigured    = errors.New("billing_not_configured")
	ErrBusinessRequired = errors.New("business_required")
	ErrUnknownPrice     = errors.New("unknown_price")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrGatewayFailed    = errors.New("billing_gateway_failed")
)
