/*
Package warp composes typed, immutable pipelines of steps over a shared model and
executes them with a fixed failure policy.

The building blocks live in sub-packages:

  - pkg/domain: typed keys, the insertion-ordered Model, tuples, views and the failure taxonomy.
  - pkg/pipeline: composition (Then, ThenSet, ThenPipeline, ...) and execution.
  - pkg/ports: the transaction boundary, run store and distributed lock contracts.
  - pkg/adapters: SQL transactions, Redis locks and run stores, in-memory stores and locks, and an HTTP controller.
  - pkg/script: Lua scripts as pipeline steps, with params declared through pkg/schema.
  - pkg/persistence/middleware: encryption and masking of stored runs.
  - pkg/observability: Prometheus metrics and OpenTelemetry tracing hooks.

This package wires them into a Runtime driven by configuration, as used by the warp binary.

# Usage

	keys := domain.NewRegistry()
	total := domain.MustCreateKey[int](keys, "total", nil)

	p := pipeline.ThenSet(pipeline.Init(svc), total, func(c *pipeline.Context[pipeline.Empty, *Services]) (int, error) {
		return c.Services().Sum(c.Context())
	})

	model, err := p.Execute(ctx)
	if err != nil {
		// Status and script failures are returned; validation failures are recorded in model.
	}

# Failures

Every error escaping a pipeline is classified once: status failures are recorded in the
model and returned, validation failures are recorded and absorbed, script failures are
wrapped with their source location, and any other error is returned untouched.
*/
package warp
