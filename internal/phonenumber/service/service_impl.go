package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	businessdomain "github.com/smallbiznis/receptionist/internal/business/domain"
	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/smallbiznis/receptionist/internal/identity"
	"github.com/smallbiznis/receptionist/internal/observability/metrics"
	"github.com/smallbiznis/receptionist/internal/phonenumber/domain"
	"github.com/smallbiznis/receptionist/internal/phonenumber/provider/mock"
	"github.com/smallbiznis/receptionist/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const mockModeAreaCode = "000"

var (
	digitsPattern = regexp.MustCompile(`^[0-9]*$`)
	e164Pattern   = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Businesses businessdomain.Service
	Provider   domain.Provider
	Fees       domain.FeeCharger        `optional:"true"`
	Limiter    *ratelimit.NumberLimiter `optional:"true"`
	Metrics    *metrics.Metrics         `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	businesses businessdomain.Service
	provider   domain.Provider
	fees       domain.FeeCharger
	limiter    *ratelimit.NumberLimiter
	metrics    *metrics.Metrics
	voiceURL   string
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("phonenumber.service"),
		businesses: p.Businesses,
		provider:   p.Provider,
		fees:       p.Fees,
		limiter:    p.Limiter,
		metrics:    p.Metrics,
		voiceURL:   strings.TrimRight(p.Config.PublicHost, "/") + "/twilio/voice",
	}
}

// Search lists purchasable numbers. Carrier failures are answered with a
// generated list so onboarding can continue.
func (s *Service) Search(ctx context.Context, query domain.SearchQuery) ([]domain.Candidate, error) {
	query.AreaCode = strings.TrimSpace(query.AreaCode)
	if !digitsPattern.MatchString(query.AreaCode) {
		return nil, domain.ErrInvalidAreaCode
	}
	switch len(query.AreaCode) {
	case 0, 3, 5:
	default:
		return nil, domain.ErrInvalidAreaCode
	}

	if owner, ok := identity.FromContext(ctx); ok && !s.limiter.AllowSearch(ctx, owner.Email) {
		return nil, domain.ErrRateLimited
	}

	providerName := s.provider.Name()
	if query.AreaCode == mockModeAreaCode {
		providerName = mock.ProviderName
	}
	s.metrics.RecordNumberSearch(ctx, providerName, query.Type())

	if providerName == mock.ProviderName {
		return mock.Generate(query), nil
	}

	candidates, err := s.provider.Search(ctx, query)
	if err != nil {
		s.log.Warn("number search failed, serving fallback list",
			zap.String("provider", providerName),
			zap.String("query_type", query.Type()),
			zap.Error(err),
		)
		return mock.Fallback(query), nil
	}
	if len(candidates) == 0 {
		s.log.Info("number search returned no results",
			zap.String("provider", providerName),
			zap.String("area_code", query.AreaCode),
		)
	}
	return candidates, nil
}

// Purchase buys number for the business and assigns it. Buying the number the
// business already holds is a no-op success.
func (s *Service) Purchase(ctx context.Context, req domain.PurchaseRequest) (domain.PurchaseResult, error) {
	number := strings.TrimSpace(req.PhoneNumber)
	if !e164Pattern.MatchString(number) {
		return domain.PurchaseResult{}, domain.ErrInvalidPhoneNumber
	}

	business, err := s.businesses.Get(ctx, req.BusinessID)
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	if business.HasPhoneNumber() {
		if business.PhoneNumber == number {
			return successResult(business.PhoneNumber, business.PhoneNumberSID), nil
		}
		return domain.PurchaseResult{}, domain.ErrNumberAlreadyAssigned
	}

	release, locked, err := s.limiter.LockNumber(ctx, number)
	if err != nil {
		s.log.Warn("number lock unavailable, continuing without it", zap.String("number", number), zap.Error(err))
	} else if !locked {
		return domain.PurchaseResult{}, domain.ErrNumberUnavailable
	}
	defer release()

	providerName := s.provider.Name()
	var purchased domain.PurchasedNumber
	if domain.IsMagicNumber(number) {
		providerName = mock.ProviderName
		purchased = domain.PurchasedNumber{PhoneNumber: number, SID: domain.MockSIDPrefix + number}
	} else {
		if err := s.chargeFee(ctx, business, number); err != nil {
			s.metrics.RecordNumberPurchased(ctx, providerName, "payment_failed")
			return domain.PurchaseResult{}, err
		}
		purchased, err = s.provider.Purchase(ctx, number, s.voiceURL)
		if err != nil {
			s.metrics.RecordNumberPurchased(ctx, providerName, "failed")
			s.log.Error("number purchase failed",
				zap.String("business_id", business.ID.String()),
				zap.String("number", number),
				zap.Error(err),
			)
			if errors.Is(err, domain.ErrNumberUnavailable) {
				return domain.PurchaseResult{}, domain.ErrNumberUnavailable
			}
			return domain.PurchaseResult{}, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
	}

	updated, err := s.businesses.AssignPhoneNumber(ctx, businessdomain.AssignPhoneNumberRequest{
		BusinessID: business.ID,
		Number:     purchased.PhoneNumber,
		SID:        purchased.SID,
	})
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	s.metrics.RecordNumberPurchased(ctx, providerName, "success")
	s.log.Info("number purchased",
		zap.String("business_id", updated.ID.String()),
		zap.String("number", updated.PhoneNumber),
		zap.String("provider", providerName),
	)
	return successResult(updated.PhoneNumber, updated.PhoneNumberSID), nil
}

// Release returns the business number to the carrier and clears it locally.
// Carrier errors are logged; the local record is cleared regardless.
func (s *Service) Release(ctx context.Context, req domain.ReleaseRequest) (domain.ReleaseResult, error) {
	business, err := s.businesses.Get(ctx, req.BusinessID)
	if err != nil {
		return domain.ReleaseResult{}, err
	}

	sid := strings.TrimSpace(business.PhoneNumberSID)
	oldNumber := business.PhoneNumber
	if _, err := s.businesses.ClearPhoneNumber(ctx, business.ID); err != nil {
		return domain.ReleaseResult{}, err
	}

	if sid == "" {
		return domain.ReleaseResult{
			Status:  "success",
			Message: "No real number to release, record cleared.",
		}, nil
	}

	providerName := mock.ProviderName
	if !domain.IsMockSID(sid) {
		providerName = s.provider.Name()
		if err := s.provider.Release(ctx, sid); err != nil {
			s.log.Warn("carrier release failed, local record cleared",
				zap.String("business_id", business.ID.String()),
				zap.String("provider", providerName),
				zap.Error(err),
			)
		}
	}

	s.metrics.RecordNumberReleased(ctx, providerName)
	s.log.Info("number released",
		zap.String("business_id", business.ID.String()),
		zap.String("number", oldNumber),
	)
	return domain.ReleaseResult{
		Status:      "success",
		Message:     "Released number " + oldNumber,
		PhoneNumber: oldNumber,
	}, nil
}

func (s *Service) chargeFee(ctx context.Context, business businessdomain.Business, number string) error {
	if s.fees == nil || strings.TrimSpace(business.StripeCustomerID) == "" {
		return nil
	}
	if err := s.fees.ChargeNumberFee(ctx, business.StripeCustomerID, number); err != nil {
		s.log.Error("number fee charge failed",
			zap.String("business_id", business.ID.String()),
			zap.Error(err),
		)
		return domain.ErrPaymentFailed
	}
	return nil
}

func successResult(number, sid string) domain.PurchaseResult {
	return domain.PurchaseResult{
		Status:      "success",
		PhoneNumber: number,
		SID:         sid,
		Fee:         domain.PurchaseFee,
	}
}

