// Package observability provides OpenTelemetry tracing and metrics for DAG
// runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("dagflow"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartNodeSpan(ctx, "outer.sum", "task", -1)
//	defer span.End()
//	if err != nil {
//		observability.FailSpan(ctx, err)
//	}
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("dagflow"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("dagflow"))
//	metrics.RecordInvocation(ctx, "outer.sum", "task", "ok", duration)
package observability
