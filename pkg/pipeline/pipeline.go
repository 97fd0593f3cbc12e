package pipeline

import (
	"context"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/ports"
)

// Pipeline is an immutable composition of steps.
//
// In is the type of the result the composed function starts from (the absent
// result, Empty, for pipelines built with Init), Out is the type it produces, and
// S is the services handle. Every composition function returns a new Pipeline that
// wraps the previous one; the previous one stays valid and can still be executed.
type Pipeline[In, Out, S any] struct {
	fn       func(*Context[In, S]) (Out, error)
	services S
	cfg      settings
	steps    int
}

// Executor is the untyped view of a Pipeline used by controllers.
type Executor interface {
	Run(ctx context.Context, model *domain.Model) (*domain.Model, error)
}

var _ Executor = (*Pipeline[Empty, Empty, struct{}])(nil)

// Init starts a pipeline over the given services handle.
func Init[S any](services S, opts ...Option) *Pipeline[Empty, Empty, S] {
	return &Pipeline[Empty, Empty, S]{
		fn: func(*Context[Empty, S]) (Empty, error) {
			return Empty{}, nil
		},
		services: services,
		cfg:      newSettings(opts),
	}
}

// Stage starts a sub-pipeline whose first step receives a result of type R.
// Stages are meant to be attached with ThenPipeline; when executed on their own
// they start from the zero value of R and a zero services handle.
func Stage[R, S any](opts ...Option) *Pipeline[R, R, S] {
	return &Pipeline[R, R, S]{
		fn: func(c *Context[R, S]) (R, error) {
			return c.result, nil
		},
		cfg: newSettings(opts),
	}
}

// Name returns the label of the pipeline.
func (p *Pipeline[In, Out, S]) Name() string {
	return p.cfg.name
}

// Steps returns the number of composed steps. Zero means nothing was composed yet.
func (p *Pipeline[In, Out, S]) Steps() int {
	return p.steps
}

// Services returns the services handle.
func (p *Pipeline[In, Out, S]) Services() S {
	return p.services
}

// Transactional reports whether executions run inside a transaction boundary.
func (p *Pipeline[In, Out, S]) Transactional() bool {
	return p.cfg.tx.boundary != nil || p.cfg.tx.provider != nil
}

// WithTransaction returns a copy that resolves its boundary from provider on each execution.
// A boundary previously set with WithBoundary is dropped.
func (p *Pipeline[In, Out, S]) WithTransaction(provider ports.TransactionProvider) *Pipeline[In, Out, S] {
	c := p.clone()
	c.cfg.tx.boundary = nil
	c.cfg.tx.provider = provider
	return c
}

// WithBoundary returns a copy that runs inside boundary.
func (p *Pipeline[In, Out, S]) WithBoundary(boundary ports.TransactionBoundary) *Pipeline[In, Out, S] {
	c := p.clone()
	c.cfg.tx.boundary = boundary
	return c
}

// WithPropagationHook returns a copy whose resolved boundary is decorated by hook.
func (p *Pipeline[In, Out, S]) WithPropagationHook(hook ports.BoundaryHook) *Pipeline[In, Out, S] {
	c := p.clone()
	c.cfg.tx.hook = hook
	return c
}

func (p *Pipeline[In, Out, S]) clone() *Pipeline[In, Out, S] {
	c := *p
	return &c
}

// extend builds the successor of p around a new composed function.
func extend[In, Mid, Out, S any](p *Pipeline[In, Mid, S], fn func(*Context[In, S]) (Out, error)) *Pipeline[In, Out, S] {
	return &Pipeline[In, Out, S]{
		fn:       fn,
		services: p.services,
		cfg:      p.cfg,
		steps:    p.steps + 1,
	}
}
