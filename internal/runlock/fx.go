package runlock

import (
	"context"

	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("runlock",
	fx.Provide(NewLocker),
)

// NewLocker returns a Redis-backed locker when REDIS_ADDR is set, otherwise an in-process one.
func NewLocker(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, log *zap.Logger) Locker {
	if cfg.RedisAddr == "" {
		log.Info("run lock using in-memory locker")
		return NewMemoryLocker(clk.Now)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	log.Info("run lock using redis", zap.String("addr", cfg.RedisAddr))
	return NewRedisLocker(client)
}
