package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuild_RejectsUnknownLevel(t *testing.T) {
	_, err := Build(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestZapConfig_Format(t *testing.T) {
	cfg, err := zapConfig(Config{Format: "Console", Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())
	assert.Nil(t, cfg.Sampling)

	cfg, err = zapConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
}

func TestSamplingOf_Defaults(t *testing.T) {
	window, initial, thereafter := samplingOf(Config{})
	assert.Equal(t, time.Second, window)
	assert.Equal(t, 100, initial)
	assert.Equal(t, 100, thereafter)

	window, initial, thereafter = samplingOf(Config{SamplingWindow: time.Minute, SamplingInitial: 5, SamplingThereafter: 10})
	assert.Equal(t, time.Minute, window)
	assert.Equal(t, 5, initial)
	assert.Equal(t, 10, thereafter)
}

func TestWithAccountAndPeriod(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	log := WithPeriod(
		WithAccount(zap.New(core), " 1001 "),
		time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	)
	log.Info("billing run finished")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "1001", fields["account_id"])
	assert.Contains(t, fields, "period_start")
	assert.Contains(t, fields, "period_end")
}

func TestWithAccount_NilLogger(t *testing.T) {
	assert.Nil(t, WithAccount(nil, "1"))
	assert.Nil(t, WithPeriod(nil, time.Time{}, time.Time{}))
}
