package pipeline

import (
	"fmt"

	"github.com/aretw0/warp/pkg/domain"
)

// Step is one unit of composition. It receives the previous result of type R
// and produces a value of type O.
type Step[R, O, S any] func(c *Context[R, S]) (O, error)

// Then appends step; it receives the previous step's output as its result.
func Then[In, Mid, Out, S any](p *Pipeline[In, Mid, S], step Step[Mid, Out, S]) *Pipeline[In, Out, S] {
	if step == nil {
		panic("pipeline: Then called with a nil step")
	}
	prev := p.fn
	return extend(p, func(c *Context[In, S]) (Out, error) {
		mid, err := prev(c)
		if err != nil {
			var zero Out
			return zero, err
		}
		return step(rebind(c, mid))
	})
}

// ThenWithoutResult appends step with the previous output discarded.
// The model, services and params are kept, so an independent sub-computation can
// start without losing accumulated state.
func ThenWithoutResult[In, Mid, Out, S any](p *Pipeline[In, Mid, S], step Step[Empty, Out, S]) *Pipeline[In, Out, S] {
	if step == nil {
		panic("pipeline: ThenWithoutResult called with a nil step")
	}
	prev := p.fn
	return extend(p, func(c *Context[In, S]) (Out, error) {
		if _, err := prev(c); err != nil {
			var zero Out
			return zero, err
		}
		return step(rebind(c, Empty{}))
	})
}

// ThenPipeline appends the composed function of q, fed with p's output.
// The result adopts the transaction configuration q declares, so configuration
// declared deep in a chain governs the whole execution. A boundary or provider of q
// replaces p's boundary and provider together; a hook of q replaces p's hook. Parts q
// leaves unset are kept from p.
// q's services handle and params are ignored: the upstream execution supplies them.
func ThenPipeline[In, Mid, Out, S any](p *Pipeline[In, Mid, S], q *Pipeline[Mid, Out, S]) *Pipeline[In, Out, S] {
	if q == nil {
		panic("pipeline: ThenPipeline called with a nil pipeline")
	}
	prev, next := p.fn, q.fn
	np := extend(p, func(c *Context[In, S]) (Out, error) {
		mid, err := prev(c)
		if err != nil {
			var zero Out
			return zero, err
		}
		return next(rebind(c, mid))
	})
	np.steps = p.steps + q.steps
	np.cfg.tx = mergeTx(p.cfg.tx, q.cfg.tx)
	return np
}

func mergeTx(up, down txConfig) txConfig {
	merged := up
	if down.boundary != nil || down.provider != nil {
		merged.boundary = down.boundary
		merged.provider = down.provider
	}
	if down.hook != nil {
		merged.hook = down.hook
	}
	return merged
}

// ThenSet appends step and stores its output in the model under key.
// The stored value is also passed on as the new result.
func ThenSet[In, Mid, T, S any](p *Pipeline[In, Mid, S], key domain.Key[T], step Step[Mid, T, S]) *Pipeline[In, T, S] {
	if step == nil {
		panic("pipeline: ThenSet called with a nil step")
	}
	prev := p.fn
	return extend(p, func(c *Context[In, S]) (T, error) {
		var zero T
		mid, err := prev(c)
		if err != nil {
			return zero, err
		}
		v, err := step(rebind(c, mid))
		if err != nil {
			return zero, err
		}
		return domain.Put(c.model, key, v), nil
	})
}

// ThenSetMany appends step and stores the values of its tuple into 2 to 6 slots, left to right.
// It panics at build time when the slot count is out of range.
func ThenSetMany[In, Mid, S any](p *Pipeline[In, Mid, S], slots []domain.Slot, step Step[Mid, domain.Tuple, S]) *Pipeline[In, domain.Tuple, S] {
	if step == nil {
		panic("pipeline: ThenSetMany called with a nil step")
	}
	if len(slots) < domain.MinBatch || len(slots) > domain.MaxBatch {
		panic(fmt.Sprintf("pipeline: ThenSetMany needs %d to %d slots, got %d", domain.MinBatch, domain.MaxBatch, len(slots)))
	}
	slots = append([]domain.Slot(nil), slots...)
	prev := p.fn
	return extend(p, func(c *Context[In, S]) (domain.Tuple, error) {
		mid, err := prev(c)
		if err != nil {
			return domain.Tuple{}, err
		}
		t, err := step(rebind(c, mid))
		if err != nil {
			return domain.Tuple{}, err
		}
		if err := c.model.PutMany(t, slots...); err != nil {
			return domain.Tuple{}, fmt.Errorf("failed to store step output: %w", err)
		}
		return t, nil
	})
}

// ThenSetDefault stores a fresh default of key, ignoring the incoming result.
// A key without a default factory is cleared and the zero T is passed on.
func ThenSetDefault[In, Mid, T, S any](p *Pipeline[In, Mid, S], key domain.Key[T]) *Pipeline[In, T, S] {
	prev := p.fn
	return extend(p, func(c *Context[In, S]) (T, error) {
		var zero T
		if _, err := prev(c); err != nil {
			return zero, err
		}
		if !key.HasDefault() {
			domain.Remove(c.model, key)
			return zero, nil
		}
		return domain.Put(c.model, key, key.NewDefault()), nil
	})
}

// ThenSetDefaults stores a fresh default for each of 1 to 6 slots and passes them on as a tuple.
// Slots without a default factory are written as nil, which clears them.
func ThenSetDefaults[In, Mid, S any](p *Pipeline[In, Mid, S], slots ...domain.Slot) *Pipeline[In, domain.Tuple, S] {
	if len(slots) < 1 || len(slots) > domain.MaxBatch {
		panic(fmt.Sprintf("pipeline: ThenSetDefaults needs 1 to %d slots, got %d", domain.MaxBatch, len(slots)))
	}
	slots = append([]domain.Slot(nil), slots...)
	prev := p.fn
	return extend(p, func(c *Context[In, S]) (domain.Tuple, error) {
		if _, err := prev(c); err != nil {
			return domain.Tuple{}, err
		}
		values := make([]any, len(slots))
		for i, s := range slots {
			values[i], _ = s.Default()
			c.model.Set(s.Name(), values[i])
		}
		return domain.NewTuple(values...)
	})
}
