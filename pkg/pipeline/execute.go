package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/ports"
)

// PanicError carries a panic recovered from a step.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pipeline step panicked: %v", e.Value)
}

// Unwrap exposes a panicked error value, so panicking with a typed failure classifies like returning it.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// StackTrace returns the stack of the panicking goroutine.
func (e *PanicError) StackTrace() string {
	return string(e.Stack)
}

// Execute runs the pipeline against a fresh model and returns it.
func (p *Pipeline[In, Out, S]) Execute(ctx context.Context) (*domain.Model, error) {
	_, model, err := p.execute(ctx, nil)
	return model, err
}

// ExecuteInto runs the pipeline against an existing model.
// The model is populated with the failure fields before a failure is returned.
func (p *Pipeline[In, Out, S]) ExecuteInto(ctx context.Context, model *domain.Model) (*domain.Model, error) {
	_, model, err := p.execute(ctx, model)
	return model, err
}

// ExecuteWithResult runs the pipeline against a fresh model and also returns the final result.
// The result is the zero value when the execution failed, even if the failure was absorbed.
func (p *Pipeline[In, Out, S]) ExecuteWithResult(ctx context.Context) (Out, *domain.Model, error) {
	return p.execute(ctx, nil)
}

// ExecuteView runs the pipeline and applies sel to the resulting model.
// A recorded failure still selects the error branch. An unrecorded one leaves
// the model without error flags, so the raw model is returned instead of a success view.
func (p *Pipeline[In, Out, S]) ExecuteView(ctx context.Context, sel *domain.ViewSelector) (domain.ViewResult, error) {
	_, model, err := p.execute(ctx, nil)
	if err != nil && !model.IsError() {
		return domain.SelectView(false, nil, model), err
	}
	return model.View(sel), err
}

// Run implements Executor. A nil model means a fresh one.
func (p *Pipeline[In, Out, S]) Run(ctx context.Context, model *domain.Model) (*domain.Model, error) {
	return p.ExecuteInto(ctx, model)
}

func (p *Pipeline[In, Out, S]) execute(ctx context.Context, model *domain.Model) (Out, *domain.Model, error) {
	var out Out
	if ctx == nil {
		ctx = context.Background()
	}
	if model == nil {
		model = domain.NewModel()
	}

	start := time.Now()
	p.emitStart(ctx)

	boundary, err := p.resolveBoundary()
	if err != nil {
		err = fmt.Errorf("failed to resolve transaction boundary: %w", err)
		// Resolution failures never reach the steps; they are reported as they are.
		returned := p.handleFailure(ctx, model, domain.Failure{Class: domain.ClassOther, Err: err})
		p.emitEnd(ctx, start, domain.ClassOther, returned)
		return out, model, returned
	}

	work := func(ctx context.Context) error {
		var err error
		out, err = p.invoke(ctx, model)
		return err
	}

	if boundary != nil {
		err = boundary.Do(ctx, work)
	} else {
		err = work(ctx)
	}

	if err != nil {
		var zero Out
		failure := domain.Classify(err)
		returned := p.handleFailure(ctx, model, failure)
		p.emitEnd(ctx, start, failure.Class, returned)
		return zero, model, returned
	}

	markSuccess(model)
	if err := finalize(model); err != nil {
		var zero Out
		returned := p.handleFailure(ctx, model, domain.Failure{Class: domain.ClassOther, Err: err})
		p.emitEnd(ctx, start, domain.ClassOther, returned)
		return zero, model, returned
	}
	p.emitEnd(ctx, start, domain.ClassNone, nil)
	return out, model, nil
}

// resolveBoundary prefers an explicit boundary, then the provider, then none.
// The propagation hook decorates whatever was resolved.
func (p *Pipeline[In, Out, S]) resolveBoundary() (ports.TransactionBoundary, error) {
	tx := p.cfg.tx
	boundary := tx.boundary
	if boundary == nil && tx.provider != nil {
		b, err := tx.provider()
		if err != nil {
			return nil, err
		}
		boundary = b
	}
	if boundary != nil && tx.hook != nil {
		boundary = tx.hook(boundary)
	}
	return boundary, nil
}

func (p *Pipeline[In, Out, S]) invoke(ctx context.Context, model *domain.Model) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	var absent In
	return p.fn(&Context[In, S]{
		ctx:      ctx,
		model:    model,
		result:   absent,
		services: p.services,
		params:   p.cfg.params,
	})
}

func markSuccess(model *domain.Model) {
	domain.Put(model, domain.IsError, false)
	domain.Remove(model, domain.ErrorMessage)
	domain.Remove(model, domain.ErrorDiagnostic)
	domain.Remove(model, domain.FailureValue)
}

// finalize runs the post-execution hooks in the model's insertion order.
// A panicking hook stops the pass and is returned as a *PanicError.
func finalize(model *domain.Model) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	for _, v := range model.All() {
		if f, ok := v.(domain.Finalizable); ok {
			f.Finalize()
		}
	}
	return nil
}

func (p *Pipeline[In, Out, S]) emitStart(ctx context.Context) {
	if p.cfg.hooks.OnExecuteStart == nil {
		return
	}
	p.cfg.hooks.OnExecuteStart(ctx, &domain.ExecutionEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventExecuteStart,
			Pipeline:  p.cfg.name,
		},
	})
}

func (p *Pipeline[In, Out, S]) emitEnd(ctx context.Context, start time.Time, outcome domain.FailureClass, err error) {
	if p.cfg.hooks.OnExecuteEnd == nil {
		return
	}
	p.cfg.hooks.OnExecuteEnd(ctx, &domain.ExecutionEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventExecuteEnd,
			Pipeline:  p.cfg.name,
		},
		Outcome:  outcome,
		Duration: time.Since(start),
		Err:      err,
	})
}
