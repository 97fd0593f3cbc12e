/*
Package pipeline builds and executes typed, immutable chains of steps over a shared Model.

A pipeline starts with Init and grows through the composition functions. Each one
returns a new Pipeline wrapping the previous composed function; the previous value is
untouched and stays executable.

	p := pipeline.Init(svc, pipeline.WithName("signup"))
	q := pipeline.ThenSet(p, Email, func(c *pipeline.Context[pipeline.Empty, *Services]) (string, error) {
		return c.Services().Lookup(c.Context())
	})
	model, err := q.Execute(ctx)

# Failures

A failed execution is classified exactly once, at the pipeline boundary:

  - Status failures (errors exposing StatusCode) are recorded in the model and returned.
  - Validation failures (*domain.ValidationError) are recorded and absorbed.
  - Script failures (domain.ScriptFailure) are wrapped in *domain.ScriptError, recorded and returned.
  - Anything else is returned unchanged without touching the model.

Recording writes isError, errorMessage, errorDiagnostic and failure. A successful
execution writes isError=false, clears the other three and finalizes every
domain.Finalizable value of the model.

# Transactions

An execution runs inside at most one ports.TransactionBoundary: an explicit boundary,
or else one resolved from a provider for that execution. A BoundaryHook decorates it.
ThenPipeline carries the downstream transaction configuration upstream, so a
configuration declared at the end of a chain governs the whole execution.
*/
package pipeline
