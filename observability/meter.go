package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/dagflow/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name reported for the process.
	ServiceName string
	// ServiceVersion is the version of the process.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded while DAGs run.
type Metrics struct {
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	active         metric.Int64UpDownCounter
	partitions     metric.Int64Counter
	bytesPersisted metric.Int64Counter
	errors         metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	invocations, err := meter.Int64Counter("dag.node.invocations",
		metric.WithDescription("Total number of node invocations, one per partition"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.node.invocations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("dag.node.duration",
		metric.WithDescription("Duration of node invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.node.duration histogram: %w", err)
	}

	active, err := meter.Int64UpDownCounter("dag.node.active",
		metric.WithDescription("Number of node invocations currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.node.active gauge: %w", err)
	}

	partitions, err := meter.Int64Counter("dag.node.partitions",
		metric.WithDescription("Total number of partitions fanned out by partitioned nodes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.node.partitions counter: %w", err)
	}

	bytesPersisted, err := meter.Int64Counter("dag.output.bytes",
		metric.WithDescription("Bytes of serialized output written to storage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.output.bytes counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("dag.errors",
		metric.WithDescription("Total node failures by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.errors counter: %w", err)
	}

	return &Metrics{
		invocations:    invocations,
		duration:       duration,
		active:         active,
		partitions:     partitions,
		bytesPersisted: bytesPersisted,
		errors:         errorTotal,
	}, nil
}

// RecordStart increments the active invocation count.
func (m *Metrics) RecordStart(ctx context.Context) {
	m.active.Add(ctx, 1)
}

// RecordInvocation decrements the active count and records a finished invocation.
func (m *Metrics) RecordInvocation(ctx context.Context, node, kind, status string, duration time.Duration) {
	m.active.Add(ctx, -1)
	m.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("kind", kind),
	))
}

// RecordPartitions records how many partitions a node fanned out to.
func (m *Metrics) RecordPartitions(ctx context.Context, node string, n int) {
	m.partitions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("node", node)))
}

// RecordBytes records the size of a persisted output.
func (m *Metrics) RecordBytes(ctx context.Context, node, output string, n int64) {
	m.bytesPersisted.Add(ctx, n, metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("output", output),
	))
}

// RecordError records a node failure by error code.
func (m *Metrics) RecordError(ctx context.Context, node, code string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("code", code),
	))
}
