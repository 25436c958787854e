package rate

import (
	"github.com/ewceniza9009/cloudpallet-sub002/internal/rate/repository"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/rate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
