package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name        string
	Industry    string
	Description string
	Timezone    string
}

// UpdateRequest carries a partial update; nil fields are left untouched.
type UpdateRequest struct {
	ID                  string
	Name                *string
	Industry            *string
	Description         *string
	PhoneNumber         *string
	Timezone            *string
	GreetingStyle       *string
	BusinessHours       *string
	CommonServices      *string
	FAQs                *[]FAQ
	ReceptionistEnabled *bool
}

type AssignPhoneNumberRequest struct {
	BusinessID snowflake.ID
	Number     string
	SID        string
}

type SubscriptionUpdate struct {
	BusinessID       string
	StripeCustomerID string
	Status           string
	MinutesLimit     int
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Business, error)
	Update(ctx context.Context, req UpdateRequest) (Business, error)
	UpdateMine(ctx context.Context, req UpdateRequest) (Business, error)
	Get(ctx context.Context, id string) (Business, error)
	GetMine(ctx context.Context) (*Business, error)
	SetReceptionistEnabled(ctx context.Context, enabled bool) (Business, error)
	SetActive(ctx context.Context, id string, active bool) (Business, error)

	AssignPhoneNumber(ctx context.Context, req AssignPhoneNumberRequest) (Business, error)
	ClearPhoneNumber(ctx context.Context, id snowflake.ID) (Business, error)
	LinkStripeCustomer(ctx context.Context, id snowflake.ID, customerID string) error
	ApplySubscription(ctx context.Context, update SubscriptionUpdate) (Business, error)
}

var (
	ErrInvalidName               = errors.New("invalid_name")
	ErrInvalidID                 = errors.New("invalid_id")
	ErrInvalidTimezone           = errors.New("invalid_timezone")
	ErrInvalidGreetingStyle      = errors.New("invalid_greeting_style")
	ErrInvalidPhoneNumber        = errors.New("invalid_phone_number")
	ErrInvalidSubscriptionStatus = errors.New("invalid_subscription_status")
	ErrPhoneNumberRequired       = errors.New("phone_number_required")
	ErrUnauthenticated           = errors.New("unauthenticated")
	ErrForbidden                 = errors.New("forbidden")
	ErrNotFound                  = errors.New("not_found")
)
