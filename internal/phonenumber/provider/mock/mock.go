package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/receptionist/internal/phonenumber/domain"
)

const (
	ProviderName     = "mock"
	defaultBase      = "555"
	candidateCount   = 5
	testLocality     = "Test City"
	fallbackLocality = "Fallback City"
)

// Provider serves generated numbers when no carrier is configured. Purchases
// succeed with a PN_MOCK_ sid and releases are no-ops.
type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Search(_ context.Context, query domain.SearchQuery) ([]domain.Candidate, error) {
	return Generate(query), nil
}

func (p *Provider) Purchase(_ context.Context, number, _ string) (domain.PurchasedNumber, error) {
	number = strings.TrimSpace(number)
	return domain.PurchasedNumber{
		PhoneNumber: number,
		SID:         domain.MockSIDPrefix + number,
	}, nil
}

func (p *Provider) Release(context.Context, string) error {
	return nil
}

// Generate builds the magic-mode candidate list. A 3-digit query seeds the
// area code, a 5-digit query seeds it from the postal code prefix.
func Generate(query domain.SearchQuery) []domain.Candidate {
	code := strings.TrimSpace(query.AreaCode)
	base := defaultBase
	locality := testLocality
	switch len(code) {
	case 3:
		base = code
		locality = "Area " + code
	case 5:
		base = code[:3]
		locality = "Zip " + code
	}
	return candidates(base, locality, region(query))
}

// Fallback is served when a real carrier search fails.
func Fallback(query domain.SearchQuery) []domain.Candidate {
	code := strings.TrimSpace(query.AreaCode)
	base := defaultBase
	if len(code) >= 3 {
		base = code[:3]
	}
	return candidates(base, fallbackLocality, region(query))
}

func candidates(base, locality, region string) []domain.Candidate {
	out := make([]domain.Candidate, 0, candidateCount)
	for i := 0; i < candidateCount; i++ {
		out = append(out, domain.Candidate{
			PhoneNumber:  fmt.Sprintf("+1%s555010%d", base, i),
			FriendlyName: fmt.Sprintf("(%s) 555-010%d", base, i),
			Locality:     locality,
			Region:       region,
		})
	}
	return out
}

func region(query domain.SearchQuery) string {
	if r := strings.TrimSpace(query.Region); r != "" {
		return strings.ToUpper(r)
	}
	return domain.DefaultRegion
}
