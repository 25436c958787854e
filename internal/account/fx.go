package account

import (
	"github.com/ewceniza9009/cloudpallet-sub002/internal/account/repository"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
