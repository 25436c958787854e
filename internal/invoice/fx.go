package invoice

import (
	"github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/repository"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
