package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/observability"
	"github.com/aretw0/warp/pkg/pipeline"
	"github.com/aretw0/warp/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type noServices struct{}

func passthrough() ports.TransactionBoundary {
	return ports.TransactionFunc(func(ctx context.Context, fn func(context.Context) error) error {
		return fn(ctx)
	})
}

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func TestTracingHook(t *testing.T) {
	sr, tp := newRecorder(t)
	tracer := tp.Tracer("warp-test")

	p := pipeline.Then(pipeline.Init(noServices{}), func(c *pipeline.Context[pipeline.Empty, noServices]) (int, error) {
		_, child := tracer.Start(c.Context(), "step")
		child.End()
		return 0, errors.New("db down")
	}).
		WithTransaction(func() (ports.TransactionBoundary, error) { return passthrough(), nil }).
		WithPropagationHook(observability.TracingHook(tracer, "orders"))

	_, err := p.Execute(context.Background())
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	step, boundary := spans[0], spans[1]
	assert.Equal(t, "step", step.Name())
	assert.Equal(t, observability.SpanName, boundary.Name())
	assert.Equal(t, boundary.SpanContext().SpanID(), step.Parent().SpanID(), "step spans nest under the boundary span")
	assert.Equal(t, codes.Error, boundary.Status().Code)
	assert.Contains(t, boundary.Attributes(), attribute.String("warp.pipeline", "orders"))
}

func TestFailureEvents(t *testing.T) {
	sr, tp := newRecorder(t)
	ctx, span := tp.Tracer("warp-test").Start(context.Background(), "request")

	p := pipeline.Then(pipeline.Init(noServices{}, pipeline.WithName("signup"), pipeline.WithLifecycleHooks(observability.FailureEvents())),
		func(*pipeline.Context[pipeline.Empty, noServices]) (int, error) {
			return 0, domain.NewValidationError("email", "required")
		})

	_, err := p.Execute(ctx)
	require.NoError(t, err)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "pipeline.failure", events[0].Name)
	assert.Contains(t, events[0].Attributes, attribute.String("warp.failure.class", "validation"))
	assert.Contains(t, events[0].Attributes, attribute.Bool("warp.failure.absorbed", true))

	// Without a recording span the hook is a no-op.
	_, err = p.Execute(context.Background())
	require.NoError(t, err)
}
