package call

import (
	"github.com/smallbiznis/receptionist/internal/call/repository"
	"github.com/smallbiznis/receptionist/internal/call/service"
	"go.uber.org/fx"
)

var Module = fx.Module("call.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
