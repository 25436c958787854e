package observability

import (
	"testing"
	"time"

	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "")

	cfg := LoadConfig(config.Config{Environment: "production", AppVersion: "1.2.0", OTLPEndpoint: "collector:4317"})

	assert.Equal(t, "coldstore-billing", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.TracesEnabled)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, "grpc", cfg.TracesProtocol)
	assert.Equal(t, "grpc", cfg.MetricsProtocol)
	assert.Equal(t, "collector:4317", cfg.ExporterEndpoint)
	assert.InDelta(t, 0.1, cfg.SamplingRatio, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.MetricInterval)
	assert.False(t, cfg.Debug())
}

func TestLoadConfig_SignalOverrides(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "grpc")
	t.Setenv("OTEL_METRICS_ENABLED", "false")
	t.Setenv("OTEL_SAMPLING_RATIO", "2.5")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "5000")

	cfg := LoadConfig(config.Config{AppName: "coldstore-worker"})

	assert.Equal(t, "coldstore-worker", cfg.ServiceName)
	assert.Equal(t, "grpc", cfg.TracesProtocol)
	assert.Equal(t, "http", cfg.MetricsProtocol)
	assert.True(t, cfg.TracesEnabled)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, 1.0, cfg.SamplingRatio)
	assert.True(t, cfg.Debug())
	assert.Equal(t, 5*time.Second, cfg.MetricInterval)
}
