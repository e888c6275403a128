package local

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/dag/testutil"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/observability"
	"github.com/kbukum/dagflow/output"
)

func setupTracing(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func setupMetrics(t *testing.T) (*observability.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	return m, reader
}

func sumCounter(t *testing.T, reader *sdkmetric.ManualReader, name string) (int64, []attribute.Set) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, not an int64 sum", name, m.Data)
			}
			var (
				total int64
				attrs []attribute.Set
			)
			for _, dp := range sum.DataPoints {
				total += dp.Value
				attrs = append(attrs, dp.Attributes)
			}
			return total, attrs
		}
	}
	return 0, nil
}

// --- Tracing ---

func TestTracing_SpanPerRunAndNode(t *testing.T) {
	recorder := setupTracing(t)
	d, _ := testutil.SquareOfDouble()

	if _, err := Invoke(context.Background(), d, map[string]any{"x": 2}, quiet(), WithTracing()); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	var runs, nodes int
	names := map[string]bool{}
	for _, s := range recorder.Ended() {
		switch s.Name() {
		case observability.SpanRun:
			runs++
		case observability.SpanNode:
			nodes++
			for _, kv := range s.Attributes() {
				if string(kv.Key) == observability.AttrNode {
					names[kv.Value.AsString()] = true
				}
			}
		}
	}
	if runs != 1 {
		t.Errorf("run spans = %d, want 1", runs)
	}
	if nodes != 3 {
		t.Errorf("node spans = %d, want 3", nodes)
	}
	for _, n := range []string{"root", "double", "square"} {
		if !names[n] {
			t.Errorf("missing span for node %s", n)
		}
	}
}

func TestTracing_RecordsErrorCode(t *testing.T) {
	recorder := setupTracing(t)
	task := dag.MustTask(dag.TaskConfig{
		Func:    func(context.Context, dag.Args) (any, error) { return nil, stderrors.New("x") },
		Outputs: map[string]output.Extractor{"out": output.ReturnValue()},
	})

	if _, err := Invoke(context.Background(), task, nil, quiet(), WithTracing()); err == nil {
		t.Fatal("expected error")
	}
	var found bool
	for _, s := range recorder.Ended() {
		for _, kv := range s.Attributes() {
			if string(kv.Key) == observability.AttrErrorCode && kv.Value.AsString() == "EXECUTION_FAILED" {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected a span carrying the error code")
	}
}

// --- Metrics ---

func TestMetrics_CountsInvocationsAndPartitions(t *testing.T) {
	m, reader := setupMetrics(t)
	d, _ := testutil.MapReduce()

	if _, err := Invoke(context.Background(), d, map[string]any{"multiplier": 2}, quiet(), WithMetrics(m)); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	// root + fan-out + 3 partitions of multiply-by + sum
	if n, _ := sumCounter(t, reader, "dag.node.invocations"); n != 6 {
		t.Errorf("invocations = %d, want 6", n)
	}
	if n, _ := sumCounter(t, reader, "dag.node.partitions"); n != 3 {
		t.Errorf("partitions = %d, want 3", n)
	}
	if n, _ := sumCounter(t, reader, "dag.output.bytes"); n == 0 {
		t.Error("expected persisted bytes to be recorded")
	}
}

func TestMetrics_RecordsErrors(t *testing.T) {
	m, reader := setupMetrics(t)
	task := dag.MustTask(dag.TaskConfig{
		Func:    func(context.Context, dag.Args) (any, error) { return nil, stderrors.New("x") },
		Outputs: map[string]output.Extractor{"out": output.ReturnValue()},
	})

	_, _ = Invoke(context.Background(), task, nil, quiet(), WithMetrics(m))

	n, attrs := sumCounter(t, reader, "dag.errors")
	if n != 1 {
		t.Fatalf("errors = %d, want 1", n)
	}
	if code, _ := attrs[0].Value("code"); code.AsString() != "EXECUTION_FAILED" {
		t.Errorf("code = %q", code.AsString())
	}
}

// --- Logging ---

func TestLogging_TaskFailureLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "error", Format: "json"}, "test", &buf)
	d := dag.MustDAG(dag.DAGConfig{
		Nodes: map[string]dag.Node{
			"bad": dag.MustTask(dag.TaskConfig{
				Func:    func(context.Context, dag.Args) (any, error) { return nil, stderrors.New("broken") },
				Outputs: map[string]output.Extractor{"out": output.ReturnValue()},
			}),
		},
	})

	_, _ = Invoke(context.Background(), d, nil, WithLogger(log))

	out := buf.String()
	if strings.Count(out, "node failed") != 1 {
		t.Errorf("expected one failure log line, got %q", out)
	}
	if !strings.Contains(out, `"node":"bad"`) {
		t.Errorf("expected failing node in log, got %q", out)
	}
}
