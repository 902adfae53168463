package billing

import (
	"net/http"
	"time"

	"github.com/smallbiznis/receptionist/internal/billing/domain"
	"github.com/smallbiznis/receptionist/internal/billing/service"
	"github.com/smallbiznis/receptionist/internal/billing/stripe"
	"github.com/smallbiznis/receptionist/internal/config"
	obstracing "github.com/smallbiznis/receptionist/internal/observability/tracing"
	phonedomain "github.com/smallbiznis/receptionist/internal/phonenumber/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("billing.service",
	fx.Provide(NewGateway),
	fx.Provide(NewWebhookVerifier),
	fx.Provide(service.New),
	fx.Provide(NewFeeCharger),
)

const providerTimeout = 20 * time.Second

// NewGateway returns nil when Stripe is not configured; checkout and portal
// then answer billing_not_configured.
func NewGateway(cfg config.Config, log *zap.Logger) domain.Gateway {
	gateway, err := stripe.NewGateway(stripe.Config{
		SecretKey: cfg.Stripe.SecretKey,
		APIBase:   cfg.Stripe.APIBase,
	}, obstracing.WrapHTTPClient(&http.Client{Timeout: providerTimeout}))
	if err != nil {
		log.Warn("stripe is not configured, billing endpoints are disabled")
		return nil
	}
	return gateway
}

func NewWebhookVerifier(cfg config.Config) domain.WebhookVerifier {
	verifier, err := stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret, nil)
	if err != nil {
		return nil
	}
	return verifier
}

// NewFeeCharger exposes the billing service to number purchases.
func NewFeeCharger(svc domain.Service) phonedomain.FeeCharger {
	return svc
}
