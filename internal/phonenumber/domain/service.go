package domain

import (
	"context"
	"errors"
)

type PurchaseRequest struct {
	PhoneNumber string
	BusinessID  string
}

type ReleaseRequest struct {
	BusinessID string
}

type Service interface {
	Search(ctx context.Context, query SearchQuery) ([]Candidate, error)
	Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
	Release(ctx context.Context, req ReleaseRequest) (ReleaseResult, error)
}

var (
	ErrInvalidAreaCode       = errors.New("invalid_area_code")
	ErrInvalidPhoneNumber    = errors.New("invalid_phone_number")
	ErrNumberUnavailable     = errors.New("number_unavailable")
	ErrNumberAlreadyAssigned = errors.New("number_already_assigned")
	ErrPaymentFailed         = errors.New("payment_failed")
	ErrRateLimited           = errors.New("rate_limited")
	ErrProviderUnavailable   = errors.New("provider_unavailable")
)
