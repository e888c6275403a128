package local

import (
	"context"
	"time"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/observability"
)

// withTracing opens a span around every invocation.
func withTracing(next invokeFunc) invokeFunc {
	return func(ctx context.Context, c call) (map[string]Value, error) {
		ctx, span := observability.StartNodeSpan(ctx, c.displayPath(), c.node.Kind().String(), c.partition)
		defer span.End()

		out, err := next(ctx, c)
		if err != nil {
			observability.FailSpan(ctx, err)
		}
		return out, err
	}
}

// withMetrics records invocation count, duration and failures.
func withMetrics(next invokeFunc, m *observability.Metrics) invokeFunc {
	return func(ctx context.Context, c call) (map[string]Value, error) {
		m.RecordStart(ctx)
		start := time.Now()
		out, err := next(ctx, c)

		status := "ok"
		if err != nil {
			status = "error"
			m.RecordError(ctx, c.displayPath(), string(errors.CodeOf(err)))
		}
		m.RecordInvocation(ctx, c.displayPath(), c.node.Kind().String(), status, time.Since(start))
		return out, err
	}
}

// withLogging logs every invocation at debug level. Failures are logged at
// error level by the task that raised them only, not again by every
// enclosing DAG.
func withLogging(next invokeFunc, log *logger.Logger) invokeFunc {
	return func(ctx context.Context, c call) (map[string]Value, error) {
		start := time.Now()
		out, err := next(ctx, c)

		l := log.WithContext(ctx).WithNode(c.displayPath())
		fields := logger.DurationFields("invoke", time.Since(start))
		fields["kind"] = c.node.Kind().String()
		if c.partition >= 0 {
			fields[logger.FieldPartition] = c.partition
		}
		switch {
		case err == nil:
			l.Debug("node completed", fields)
		case c.node.Kind() == dag.KindTask:
			l.WithError(err).Error("node failed", fields)
		default:
			l.Debug("node failed", fields)
		}
		return out, err
	}
}
