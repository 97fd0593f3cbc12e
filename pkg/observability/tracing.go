package observability

import (
	"context"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanName is the name of the span opened around a transaction boundary.
const SpanName = "warp.pipeline.transaction"

// TracingHook opens a span around the decorated boundary.
// Steps see the span in their context, so their own spans nest under it.
func TracingHook(tracer trace.Tracer, pipeline string) ports.BoundaryHook {
	return func(inner ports.TransactionBoundary) ports.TransactionBoundary {
		return ports.TransactionFunc(func(ctx context.Context, fn func(context.Context) error) error {
			ctx, span := tracer.Start(ctx, SpanName, trace.WithAttributes(
				attribute.String("warp.pipeline", pipeline),
			))
			defer span.End()

			err := inner.Do(ctx, fn)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		})
	}
}

// FailureEvents adds an event for every classified failure to the span in the execution context.
func FailureEvents() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFailure: func(ctx context.Context, e *domain.FailureEvent) {
			span := trace.SpanFromContext(ctx)
			if !span.IsRecording() {
				return
			}
			span.AddEvent("pipeline.failure", trace.WithAttributes(
				attribute.String("warp.pipeline", e.Pipeline),
				attribute.String("warp.failure.class", e.Class.String()),
				attribute.String("warp.failure.message", e.Message),
				attribute.Bool("warp.failure.absorbed", e.Absorbed),
			))
		},
	}
}
