package local

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/input"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/observability"
	"github.com/kbukum/dagflow/serializer"
	"github.com/kbukum/dagflow/storage"
	"github.com/kbukum/dagflow/storage/memory"
	"github.com/kbukum/dagflow/util"
)

// DefaultPrefix is the storage path runs are written under.
const DefaultPrefix = "runs"

// Engine runs nodes in the current process. It is safe for concurrent use;
// concurrent runs write below different run IDs.
type Engine struct {
	store       storage.Storage
	prefix      string
	runID       string
	log         *logger.Logger
	maxParallel int
	metrics     *observability.Metrics
	tracing     bool

	invoke invokeFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithStorage sets the store outputs are persisted to. Defaults to an
// in-memory store.
func WithStorage(s storage.Storage) Option {
	return func(e *Engine) { e.store = s }
}

// WithPrefix sets the storage path runs are written under.
func WithPrefix(prefix string) Option {
	return func(e *Engine) { e.prefix = prefix }
}

// WithRunID fixes the run ID instead of generating one per run.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithLogger sets the logger. Defaults to the logger registered as
// "engine", or the global one.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaxParallel bounds how many nodes of a layer, and partitions of a
// node, run at once. Values below 2 run everything sequentially.
func WithMaxParallel(n int) Option {
	return func(e *Engine) { e.maxParallel = n }
}

// WithMetrics records invocation metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracing opens a span per run and per node invocation.
func WithTracing() Option {
	return func(e *Engine) { e.tracing = true }
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.New()
	}
	if e.log == nil {
		e.log = logger.Get("engine")
	} else {
		e.log = e.log.WithComponent("engine")
	}

	e.invoke = e.execute
	e.invoke = withLogging(e.invoke, e.log)
	if e.metrics != nil {
		e.invoke = withMetrics(e.invoke, e.metrics)
	}
	if e.tracing {
		e.invoke = withTracing(e.invoke)
	}
	return e
}

// Storage returns the store outputs are persisted to.
func (e *Engine) Storage() storage.Storage { return e.store }

// RunPath returns the storage directory of the run with the given ID.
func (e *Engine) RunPath(runID string) string { return path.Join(e.prefix, runID) }

// Run invokes node with params keyed by the node's input names and returns
// handles to its outputs keyed by output name.
//
// Every input without a default must be supplied; the missing ones are
// reported together. Params the node does not declare are logged and
// ignored. Execution stops at the first failing node, and the error names
// the failing node by its dotted path.
func (e *Engine) Run(ctx context.Context, node dag.Node, params map[string]Value) (map[string]Value, error) {
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	base := e.RunPath(runID)
	log := e.log.WithRun(runID)

	if e.tracing {
		var span trace.Span
		ctx, span = observability.StartRunSpan(ctx, runID)
		defer span.End()
	}

	resolved, err := e.bindParams(ctx, node, params, base, log)
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	log.Debug("run started", logger.Fields(logger.FieldOperation, node.Kind().String()))
	outputs, err := e.runNode(ctx, call{node: node, params: resolved, scope: base, partition: -1})
	if err != nil {
		return nil, e.fail(ctx, err)
	}
	log.Debug("run completed", logger.Fields("outputs", util.SortedKeys(outputs)))
	return outputs, nil
}

// bindParams checks params against the node's inputs and persists the
// defaults of omitted inputs.
func (e *Engine) bindParams(ctx context.Context, node dag.Node, params map[string]Value, base string, log *logger.Logger) (map[string]Value, error) {
	inputs := node.Inputs()
	resolved := make(map[string]Value, len(inputs))
	var missing []string
	for _, name := range util.SortedKeys(inputs) {
		if v, ok := params[name]; ok && v != nil {
			bound, err := bindCodec(name, inputs[name], v)
			if err != nil {
				return nil, err
			}
			resolved[name] = bound
			continue
		}
		if p, ok := inputs[name].(input.FromParam); ok && p.HasDefault {
			f, _, err := writeFile(ctx, e.store, path.Join(base, "_params", name+"."+p.Serializer().Extension()), p.Serializer(), p.Default)
			if err != nil {
				return nil, err
			}
			resolved[name] = f
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return nil, errors.MissingParameters(missing)
	}

	var unused []string
	for _, name := range util.SortedKeys(params) {
		if _, ok := inputs[name]; !ok {
			unused = append(unused, name)
		}
	}
	if len(unused) > 0 {
		log.Warn("unused parameters", logger.Fields("params", unused))
	}
	return resolved, nil
}

// bindCodec gives every File of v without a serializer the serializer of its
// input and rejects one whose serializer differs.
func bindCodec(name string, in input.Input, v Value) (Value, error) {
	switch v := v.(type) {
	case File:
		if v.Codec == nil {
			v.Codec = in.Serializer()
			return v, nil
		}
		if !serializer.Equal(v.Codec, in.Serializer()) {
			return nil, errors.SerializerMismatch(fmt.Sprintf("input %q", name),
				serializer.Name(v.Codec), serializer.Name(in.Serializer()))
		}
		return v, nil
	case Partitioned:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			bound, err := bindCodec(name, in, item)
			if err != nil {
				return nil, err
			}
			items[i] = bound
		}
		return Partitioned{Items: items}, nil
	}
	return v, nil
}

// fail makes sure err is an AppError and records it on the run span.
func (e *Engine) fail(ctx context.Context, err error) error {
	if !errors.IsAppError(err) {
		err = errors.New(errors.ErrCodeExecution, "run failed").WithCause(err)
	}
	if e.tracing {
		observability.FailSpan(ctx, err)
	}
	return err
}
