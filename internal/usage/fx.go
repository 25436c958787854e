package usage

import (
	"github.com/ewceniza9009/cloudpallet-sub002/internal/usage/repository"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.NewReader),
	fx.Provide(service.NewService),
)
