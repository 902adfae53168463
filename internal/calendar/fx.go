package calendar

import (
	"strings"

	"github.com/smallbiznis/receptionist/internal/calendar/repository"
	"github.com/smallbiznis/receptionist/internal/calendar/sealer"
	"github.com/smallbiznis/receptionist/internal/calendar/service"
	"github.com/smallbiznis/receptionist/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("calendar.service",
	fx.Provide(repository.Provide),
	fx.Provide(NewSealer),
	fx.Provide(service.New),
)

// NewSealer keys token sealing from TOKEN_ENCRYPTION_KEY, falling back to the
// auth secret outside production. It returns nil when no key is available.
func NewSealer(cfg config.Config, log *zap.Logger) (*sealer.Sealer, error) {
	secret := strings.TrimSpace(cfg.Google.EncryptionKey)
	if secret == "" && !cfg.IsProduction() {
		secret = cfg.AuthJWTSecret
	}
	if secret == "" {
		log.Warn("token encryption key not configured, calendar integration unavailable")
		return nil, nil
	}
	return sealer.New(secret, nil)
}
