package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
	ExportInterval   time.Duration
}

// Metrics exposes billing run instruments.
type Metrics struct {
	billingRuns    metric.Int64Counter
	invoiceLines   metric.Int64Counter
	droppedBuckets metric.Int64Counter
	invoiceTotal   metric.Float64Counter
	runDuration    metric.Float64Histogram
}

// NewProvider registers the global meter provider. A disabled config installs a no-op provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		)),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	if log == nil {
		log = zap.NewNop()
	}
	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
		zap.Duration("export_interval", interval),
	)
	if lc != nil {
		lc.Append(fx.Hook{
			// Shutdown flushes the last reading so a one-shot run still exports its counters.
			OnStop: provider.Shutdown,
		})
	}
	return provider, nil
}

// New configures the billing metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "coldstore-billing"
	}
	meter := provider.Meter(name)

	billingRuns, err := meter.Int64Counter("coldstore_billing_runs_total")
	if err != nil {
		return nil, err
	}
	invoiceLines, err := meter.Int64Counter("coldstore_invoice_lines_total")
	if err != nil {
		return nil, err
	}
	droppedBuckets, err := meter.Int64Counter("coldstore_dropped_buckets_total")
	if err != nil {
		return nil, err
	}
	invoiceTotal, err := meter.Float64Counter("coldstore_invoiced_amount_total")
	if err != nil {
		return nil, err
	}
	runDuration, err := meter.Float64Histogram("coldstore_billing_run_duration_seconds",
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		billingRuns:    billingRuns,
		invoiceLines:   invoiceLines,
		droppedBuckets: droppedBuckets,
		invoiceTotal:   invoiceTotal,
		runDuration:    runDuration,
	}, nil
}

// RecordBillingRun counts a finished run and its duration by outcome.
func (m *Metrics) RecordBillingRun(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.billingRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordInvoiceLines counts lines emitted per charge category.
func (m *Metrics) RecordInvoiceLines(ctx context.Context, category string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.invoiceLines.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordDroppedBucket counts usage buckets that produced no line.
func (m *Metrics) RecordDroppedBucket(ctx context.Context, category, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("category", strings.TrimSpace(category)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.droppedBuckets.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInvoicedAmount adds a finalized invoice total.
func (m *Metrics) RecordInvoicedAmount(ctx context.Context, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.invoiceTotal.Add(ctx, amount)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":  {},
	"category": {},
	"reason":   {},
	"tier":     {},
	"job":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
