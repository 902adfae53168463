package business

import (
	"github.com/smallbiznis/receptionist/internal/business/repository"
	"github.com/smallbiznis/receptionist/internal/business/service"
	"go.uber.org/fx"
)

var Module = fx.Module("business.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
