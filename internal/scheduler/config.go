package scheduler

import (
	"time"

	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
)

// Config controls the monthly invoice run loop.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	Timeout     time.Duration
	// SettleDelay holds back the run after month end so late occupancy
	// snapshots for the last day can land.
	SettleDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Hour,
		Timeout:     30 * time.Minute,
		SettleDelay: 6 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Scheduler.Enabled,
		RunInterval: cfg.Scheduler.RunInterval,
		Timeout:     cfg.Scheduler.Timeout,
		SettleDelay: cfg.Scheduler.SettleDelay,
	}
}
