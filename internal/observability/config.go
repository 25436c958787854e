package observability

import (
	"strings"
	"time"

	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
	"github.com/spf13/viper"
)

// Config holds observability configuration derived from environment variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	TracesEnabled   bool
	TracesProtocol  string
	MetricsEnabled  bool
	MetricsProtocol string

	ExporterEndpoint string
	SamplingRatio    float64
	MetricInterval   time.Duration
}

// LoadConfig reads logging and OTLP settings, falling back to the application config.
// Signal specific variables override the shared OTEL_* ones.
func LoadConfig(cfg config.Config) Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DEPLOYMENT_ENV", cfg.Environment)
	v.SetDefault("SERVICE_VERSION", cfg.AppVersion)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_ENABLED", true)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	v.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_SAMPLING_RATIO", 0.1)
	v.SetDefault("OTEL_METRIC_EXPORT_INTERVAL", 30000)

	enabled := v.GetBool("OTEL_ENABLED")
	protocol := lower(v.GetString("OTEL_EXPORTER_OTLP_PROTOCOL"))
	v.SetDefault("OTEL_TRACES_ENABLED", enabled)
	v.SetDefault("OTEL_METRICS_ENABLED", enabled)
	v.SetDefault("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", protocol)
	v.SetDefault("OTEL_EXPORTER_OTLP_METRICS_PROTOCOL", protocol)

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "coldstore-billing"
	}

	return Config{
		ServiceName:      serviceName,
		Environment:      strings.TrimSpace(v.GetString("DEPLOYMENT_ENV")),
		Version:          strings.TrimSpace(v.GetString("SERVICE_VERSION")),
		LogLevel:         lower(v.GetString("LOG_LEVEL")),
		LogFormat:        lower(v.GetString("LOG_FORMAT")),
		TracesEnabled:    v.GetBool("OTEL_TRACES_ENABLED"),
		TracesProtocol:   lower(v.GetString("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")),
		MetricsEnabled:   v.GetBool("OTEL_METRICS_ENABLED"),
		MetricsProtocol:  lower(v.GetString("OTEL_EXPORTER_OTLP_METRICS_PROTOCOL")),
		ExporterEndpoint: strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),
		SamplingRatio:    clampRatio(v.GetFloat64("OTEL_SAMPLING_RATIO")),
		MetricInterval:   time.Duration(v.GetInt("OTEL_METRIC_EXPORT_INTERVAL")) * time.Millisecond,
	}
}

// Debug reports whether verbose logging should be enabled.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch lower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
