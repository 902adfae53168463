package domain

import "strings"

const (
	DefaultRegion = "US"
	PurchaseFee   = "2.00"
	MockSIDPrefix = "PN_MOCK_"
)

// PurchaseFeeCents is the one-off charge for a provider-backed number.
const PurchaseFeeCents = 200

const (
	QueryTypeAny        = "any"
	QueryTypeAreaCode   = "area_code"
	QueryTypePostalCode = "postal_code"
)

// Candidate is a purchasable number offered by a provider search.
type Candidate struct {
	PhoneNumber  string `json:"phoneNumber"`
	FriendlyName string `json:"friendlyName"`
	Lata         string `json:"lata,omitempty"`
	RateCenter   string `json:"rateCenter,omitempty"`
	Region       string `json:"region,omitempty"`
	Locality     string `json:"locality,omitempty"`
}

// SearchQuery filters available numbers. AreaCode holds either a 3-digit area
// code or a 5-digit postal code; empty means anywhere.
type SearchQuery struct {
	AreaCode string
	Region   string
}

func (q SearchQuery) Type() string {
	switch len(strings.TrimSpace(q.AreaCode)) {
	case 3:
		return QueryTypeAreaCode
	case 5:
		return QueryTypePostalCode
	default:
		return QueryTypeAny
	}
}

type PurchasedNumber struct {
	PhoneNumber string
	SID         string
}

type PurchaseResult struct {
	Status      string `json:"status"`
	PhoneNumber string `json:"phoneNumber"`
	SID         string `json:"sid,omitempty"`
	Fee         string `json:"fee"`
}

type ReleaseResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// IsMagicNumber reports numbers that are assigned locally without touching
// the carrier.
func IsMagicNumber(number string) bool {
	return strings.HasPrefix(number, "+1000") || number == "+15550100"
}

func IsMockSID(sid string) bool {
	return strings.HasPrefix(sid, MockSIDPrefix)
}
