package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Start returns the provider authorization URL for businessID, or an
	// unavailable result when the integration is not configured.
	Start(ctx context.Context, businessID string) (StartResult, error)
	// Callback completes the OAuth return trip and returns the dashboard URL
	// the browser is sent to.
	Callback(ctx context.Context, req CallbackRequest) string
	Status(ctx context.Context, businessID string) (Status, error)
	IsConnected(ctx context.Context, businessID string) (bool, error)
	Disconnect(ctx context.Context, businessID string) error
}

var (
	ErrInvalidBusinessID = errors.New("invalid_business_id")
	ErrInvalidState      = errors.New("invalid_state")
	ErrNotConfigured     = errors.New("calendar_not_configured")
)
