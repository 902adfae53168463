package domain

import "context"

// Provider is a carrier that sells and hosts phone numbers.
type Provider interface {
	Name() string
	Search(ctx context.Context, query SearchQuery) ([]Candidate, error)
	Purchase(ctx context.Context, number, voiceURL string) (PurchasedNumber, error)
	Release(ctx context.Context, sid string) error
}

// FeeCharger bills the one-off number fee to a billing customer.
type FeeCharger interface {
	ChargeNumberFee(ctx context.Context, customerID, number string) error
}
