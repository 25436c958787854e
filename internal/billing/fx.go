package billing

import (
	"github.com/ewceniza9009/cloudpallet-sub002/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(service.NewService),
)
