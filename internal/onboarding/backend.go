package onboarding

import (
	"context"
	"errors"
)

// Durable store keys.
const (
	KeyBusinessID     = "business_id"
	KeyReservedNumber = "reserved_number"
)

// Failure signals a Backend reports through errors.Is.
var (
	ErrValidation   = errors.New("validation_error")
	ErrConflict     = errors.New("conflict")
	ErrPayment      = errors.New("payment_failed")
	ErrNotFound     = errors.New("not_found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service_unavailable")
)

type CreateBusinessInput struct {
	Name        string
	Industry    string
	Description string
	Timezone    string
}

type BusinessUpdate struct {
	Name           string
	Industry       string
	Description    string
	PhoneNumber    string
	Timezone       string
	GreetingStyle  GreetingStyle
	BusinessHours  string
	CommonServices string
	FAQs           []FAQ
}

// Backend is the API collaborator the controller drives.
type Backend interface {
	CreateBusiness(ctx context.Context, in CreateBusinessInput) (string, error)
	UpdateBusiness(ctx context.Context, businessID string, update BusinessUpdate) error
	SearchNumbers(ctx context.Context, areaCode string) ([]Candidate, error)
	PurchaseNumber(ctx context.Context, number, businessID string) (string, error)
	ReleaseNumber(ctx context.Context, businessID string) error
	CreateCheckoutSession(ctx context.Context) (string, error)
	CalendarAuthorizationURL(businessID string) (string, error)
}

// Store persists the facts that must survive a full page navigation.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Navigator performs browser-level navigation.
type Navigator interface {
	// Navigate leaves the application for url.
	Navigate(url string)
	// ReplaceURL rewrites the current location without reloading.
	ReplaceURL(url string)
}

func classifyFailure(err error) Failure {
	switch {
	case errors.Is(err, ErrConflict):
		return Failure{Kind: FailureConflict, Message: "That number is no longer available. Search again to pick another one.", Retryable: true}
	case errors.Is(err, ErrPayment):
		return Failure{Kind: FailurePayment, Message: "The number fee could not be charged. Check your payment method and try again.", Retryable: true}
	case errors.Is(err, ErrValidation):
		return Failure{Kind: FailureValidation, Message: "Some details were rejected. Correct them and try again.", Retryable: false}
	default:
		return Failure{Kind: FailureTransient, Message: "Something went wrong. Please try again.", Retryable: true}
	}
}
