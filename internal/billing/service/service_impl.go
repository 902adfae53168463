package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/smallbiznis/receptionist/internal/billing/domain"
	businessdomain "github.com/smallbiznis/receptionist/internal/business/domain"
	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/smallbiznis/receptionist/internal/identity"
	"github.com/smallbiznis/receptionist/internal/observability/metrics"
	phonedomain "github.com/smallbiznis/receptionist/internal/phonenumber/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Businesses businessdomain.Service
	Plans      *config.PlanCatalogHolder
	Gateway    domain.Gateway         `optional:"true"`
	Webhooks   domain.WebhookVerifier `optional:"true"`
	Metrics    *metrics.Metrics       `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	businesses   businessdomain.Service
	plans        *config.PlanCatalogHolder
	gateway      domain.Gateway
	webhooks     domain.WebhookVerifier
	metrics      *metrics.Metrics
	dashboardURL string
}

func New(p Params) domain.Service {
	return &Service{
		log:          p.Log.Named("billing.service"),
		businesses:   p.Businesses,
		plans:        p.Plans,
		gateway:      p.Gateway,
		webhooks:     p.Webhooks,
		metrics:      p.Metrics,
		dashboardURL: strings.TrimRight(p.Config.DashboardURL, "/"),
	}
}

// Checkout starts a subscription checkout for the caller's business. The
// browser comes back to the dashboard with success=sub_active.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResult, error) {
	if s.gateway == nil {
		return domain.CheckoutResult{}, domain.ErrNotConfigured
	}

	catalog := s.plans.Get()
	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		priceID = catalog.DefaultPriceID
	}
	plan, ok := catalog.ByPriceID(priceID)
	if !ok {
		return domain.CheckoutResult{}, domain.ErrUnknownPrice
	}

	business, customerID, err := s.ensureCustomer(ctx)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, domain.CheckoutSessionRequest{
		CustomerID: customerID,
		PriceID:    plan.PriceID,
		SuccessURL: s.dashboardURL + "/app?success=sub_active",
		CancelURL:  s.dashboardURL + "/app/subscribe",
		BusinessID: business.ID.String(),
	})
	if err != nil {
		s.log.Error("checkout session failed", zap.String("business_id", business.ID.String()), zap.Error(err))
		return domain.CheckoutResult{}, domain.ErrGatewayFailed
	}

	s.metrics.RecordCheckoutSession(ctx, plan.Name)
	return domain.CheckoutResult{URL: session.URL, SessionID: session.ID}, nil
}

// Portal opens the billing portal. An empty returnURL lands on the dashboard
// settings page.
func (s *Service) Portal(ctx context.Context, returnURL string) (string, error) {
	if s.gateway == nil {
		return "", domain.ErrNotConfigured
	}
	returnURL = strings.TrimSpace(returnURL)
	if returnURL == "" {
		returnURL = s.dashboardURL + "/app/settings"
	}

	business, customerID, err := s.ensureCustomer(ctx)
	if err != nil {
		return "", err
	}

	url, err := s.gateway.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		s.log.Error("portal session failed", zap.String("business_id", business.ID.String()), zap.Error(err))
		return "", domain.ErrGatewayFailed
	}
	return url, nil
}

// ChargeNumberFee invoices the one-off number fee. Without a billing gateway
// the fee is waived.
func (s *Service) ChargeNumberFee(ctx context.Context, customerID, number string) error {
	if s.gateway == nil {
		s.log.Debug("billing not configured, number fee waived", zap.String("number", number))
		return nil
	}
	invoiceID, err := s.gateway.ChargeOneOff(ctx, domain.OneOffCharge{
		CustomerID:  customerID,
		AmountCents: phonedomain.PurchaseFeeCents,
		Currency:    "usd",
		Description: "Phone Number Purchase: " + number,
	})
	if err != nil {
		return err
	}
	s.log.Info("number fee invoiced", zap.String("invoice_id", invoiceID), zap.String("number", number))
	return nil
}

// HandleWebhook applies subscription lifecycle events to the business.
// Ignored event types and events for unknown businesses are acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if s.webhooks == nil {
		return domain.ErrNotConfigured
	}
	if err := s.webhooks.Verify(payload, headers); err != nil {
		return err
	}

	event, err := s.webhooks.Parse(payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			return nil
		}
		return err
	}

	catalog := s.plans.Get()
	priceID := event.PriceID
	if priceID == "" && event.Type == domain.EventCheckoutCompleted {
		priceID = catalog.DefaultPriceID
	}
	var minutes int
	if plan, ok := catalog.ByPriceID(priceID); ok {
		minutes = plan.MinutesLimit
	}

	business, err := s.businesses.ApplySubscription(ctx, businessdomain.SubscriptionUpdate{
		BusinessID:       event.BusinessID,
		StripeCustomerID: event.CustomerID,
		Status:           event.Status,
		MinutesLimit:     minutes,
	})
	if err != nil {
		if errors.Is(err, businessdomain.ErrNotFound) || errors.Is(err, businessdomain.ErrInvalidID) {
			s.log.Warn("webhook for unknown business",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.Type),
				zap.String("customer_id", event.CustomerID),
			)
			return nil
		}
		return err
	}

	s.log.Info("subscription webhook applied",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("business_id", business.ID.String()),
		zap.String("status", business.SubscriptionStatus),
	)
	return nil
}

func (s *Service) ensureCustomer(ctx context.Context) (businessdomain.Business, string, error) {
	owner, ok := identity.FromContext(ctx)
	if !ok {
		return businessdomain.Business{}, "", businessdomain.ErrUnauthenticated
	}
	business, err := s.businesses.GetMine(ctx)
	if err != nil {
		return businessdomain.Business{}, "", err
	}
	if business == nil {
		return businessdomain.Business{}, "", domain.ErrBusinessRequired
	}
	if business.StripeCustomerID != "" {
		return *business, business.StripeCustomerID, nil
	}

	customerID, err := s.gateway.FindOrCreateCustomer(ctx, domain.CustomerRequest{
		Email:      owner.Email,
		Name:       business.Name,
		BusinessID: business.ID.String(),
	})
	if err != nil {
		s.log.Error("billing customer lookup failed", zap.String("business_id", business.ID.String()), zap.Error(err))
		return businessdomain.Business{}, "", domain.ErrGatewayFailed
	}
	if err := s.businesses.LinkStripeCustomer(ctx, business.ID, customerID); err != nil {
		return businessdomain.Business{}, "", err
	}
	business.StripeCustomerID = customerID
	return *business, customerID, nil
}
