package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	dagerrors "github.com/kbukum/dagflow/errors"
)

// useRecorder installs an in-memory tracer provider for the duration of the test.
func useRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := sampler(tc.rate).Description(); got != tc.want {
				t.Errorf("sampler(%v) = %s, want %s", tc.rate, got, tc.want)
			}
		})
	}
}

func TestNewMetrics_Noop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordStart(ctx)
	metrics.RecordInvocation(ctx, "sum", "task", "ok", 100*time.Millisecond)
	metrics.RecordPartitions(ctx, "multiply-by", 3)
	metrics.RecordBytes(ctx, "sum", "total", 12)
	metrics.RecordError(ctx, "sum", "OUTPUT_SHAPE")
}

func TestMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	metrics.RecordPartitions(ctx, "multiply-by", 3)
	metrics.RecordStart(ctx)
	metrics.RecordInvocation(ctx, "multiply-by", "task", "ok", time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	if sums["dag.node.partitions"] != 3 {
		t.Errorf("expected 3 partitions, got %d", sums["dag.node.partitions"])
	}
	if sums["dag.node.invocations"] != 1 {
		t.Errorf("expected 1 invocation, got %d", sums["dag.node.invocations"])
	}
	if sums["dag.node.active"] != 0 {
		t.Errorf("expected no active invocations, got %d", sums["dag.node.active"])
	}
}

func TestStartNodeSpan(t *testing.T) {
	tests := []struct {
		name      string
		partition int
		attrs     int
	}{
		{"whole node", -1, 2},
		{"partition", 2, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exporter := useRecorder(t)

			_, span := StartNodeSpan(context.Background(), "outer.task", "task", tc.partition)
			span.End()

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			if spans[0].Name != SpanNode {
				t.Errorf("expected span %q, got %q", SpanNode, spans[0].Name)
			}
			if len(spans[0].Attributes) != tc.attrs {
				t.Errorf("expected %d attributes, got %v", tc.attrs, spans[0].Attributes)
			}
		})
	}
}

func TestStartRunSpan(t *testing.T) {
	exporter := useRecorder(t)

	_, span := StartRunSpan(context.Background(), "run-1")
	span.End()

	got := exporter.GetSpans()[0]
	if got.Name != SpanRun {
		t.Errorf("expected span %q, got %q", SpanRun, got.Name)
	}
	if len(got.Attributes) != 1 || got.Attributes[0].Value.AsString() != "run-1" {
		t.Errorf("expected run id attribute, got %v", got.Attributes)
	}
}

func TestFailSpan(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		attrs int
	}{
		{"plain error", fmt.Errorf("test error"), 0},
		{"app error", dagerrors.New(dagerrors.ErrCodeOutputShape, "test error"), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exporter := useRecorder(t)

			ctx, span := otel.Tracer("test").Start(context.Background(), "test-error")
			FailSpan(ctx, tc.err)
			span.End()

			got := exporter.GetSpans()[0]
			if got.Status.Code != codes.Error {
				t.Errorf("expected error status, got %+v", got.Status)
			}
			if len(got.Events) != 1 {
				t.Errorf("expected recorded error event, got %v", got.Events)
			}
			if len(got.Attributes) != tc.attrs {
				t.Errorf("expected %d attributes, got %v", tc.attrs, got.Attributes)
			}
		})
	}
}

func TestFailSpan_WithoutSpan(t *testing.T) {
	FailSpan(context.Background(), fmt.Errorf("no span error"))
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.0.0", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if string(kv.Key) == "service.name" && kv.Value.AsString() == "svc" {
			found = true
		}
	}
	if !found {
		t.Error("expected service.name attribute")
	}
}

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	tp, err := InitTracer(context.Background(), DefaultTracerConfig("test-service"))
	if err != nil {
		t.Skipf("InitTracer failed: %v", err)
	}
	defer tp.Shutdown(context.Background())
}

func TestInitMeter(t *testing.T) {
	prev := otel.GetMeterProvider()
	defer otel.SetMeterProvider(prev)

	cfg := DefaultMeterConfig("test-service")
	mp, err := InitMeter(context.Background(), &cfg)
	if err != nil {
		t.Skipf("InitMeter failed: %v", err)
	}
	defer mp.Shutdown(context.Background())
}
