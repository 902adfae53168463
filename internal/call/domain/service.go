package domain

import (
	"context"
	"errors"
)

// StatusUpdate is a Twilio call status callback.
type StatusUpdate struct {
	CallSID         string
	From            string
	To              string
	Status          string
	DurationSeconds int
}

// ContactUpsert carries a partial contact; nil fields are left untouched.
type ContactUpsert struct {
	PhoneNumber string
	Name        *string
	Email       *string
	Notes       *string
	IsBlocked   *bool
}

type Service interface {
	RecordStatus(ctx context.Context, update StatusUpdate) (Call, error)
	RecordRecording(ctx context.Context, callSID, recordingURL string) error
	ListRecent(ctx context.Context) ([]CallView, error)

	SearchContact(ctx context.Context, phone string) (*Contact, error)
	UpsertContact(ctx context.Context, req ContactUpsert) (Contact, error)
}

var (
	ErrInvalidCallSID     = errors.New("invalid_call_sid")
	ErrInvalidCallStatus  = errors.New("invalid_call_status")
	ErrPhoneRequired      = errors.New("phone_required")
	ErrUnknownNumber      = errors.New("unknown_number")
	ErrCallNotFound       = errors.New("call_not_found")
	ErrBusinessNotFound   = errors.New("business_not_found")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrCallbackNotEnabled = errors.New("callbacks_not_configured")
)
