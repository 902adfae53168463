package phonenumber

import (
	"net/http"
	"time"

	"github.com/smallbiznis/receptionist/internal/config"
	obstracing "github.com/smallbiznis/receptionist/internal/observability/tracing"
	"github.com/smallbiznis/receptionist/internal/phonenumber/domain"
	"github.com/smallbiznis/receptionist/internal/phonenumber/provider/mock"
	"github.com/smallbiznis/receptionist/internal/phonenumber/provider/twilio"
	"github.com/smallbiznis/receptionist/internal/phonenumber/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("phonenumber.service",
	fx.Provide(NewProvider),
	fx.Provide(service.New),
)

const providerTimeout = 20 * time.Second

// NewProvider selects Twilio when credentials are configured and the
// generated mock carrier otherwise.
func NewProvider(cfg config.Config, log *zap.Logger) (domain.Provider, error) {
	if !cfg.Twilio.Configured() {
		log.Warn("twilio is not configured, phone numbers run in mock mode")
		return mock.New(), nil
	}
	provider, err := twilio.New(twilio.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		APIBase:    cfg.Twilio.APIBase,
	}, obstracing.WrapHTTPClient(&http.Client{Timeout: providerTimeout}))
	if err != nil {
		return nil, err
	}
	return provider, nil
}
