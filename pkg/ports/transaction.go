package ports

import "context"

// TransactionBoundary runs a unit of work under transactional semantics.
// The engine never inspects what commit or rollback mean for an implementation;
// it only hands over the work and observes the returned error.
type TransactionBoundary interface {
	// Do executes fn inside the boundary. Implementations commit when fn returns nil
	// and roll back otherwise, returning fn's error unchanged.
	// The context passed to fn may carry implementation state (e.g. an open *sql.Tx).
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactionFunc adapts a plain function to TransactionBoundary.
type TransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// Do implements TransactionBoundary.
func (f TransactionFunc) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// TransactionProvider lazily resolves a boundary at execution time.
type TransactionProvider func() (TransactionBoundary, error)

// BoundaryHook decorates the resolved boundary of an execution.
// Hooks travel with the transaction configuration when pipelines are composed.
type BoundaryHook func(TransactionBoundary) TransactionBoundary

// ChainBoundaryHooks applies hooks in order, so the first hook wraps innermost.
func ChainBoundaryHooks(hooks ...BoundaryHook) BoundaryHook {
	return func(b TransactionBoundary) TransactionBoundary {
		for _, h := range hooks {
			if h != nil {
				b = h(b)
			}
		}
		return b
	}
}
