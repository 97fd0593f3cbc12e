package pipeline

import (
	"context"
	"fmt"
	"maps"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Empty is the absent result. Every execution starts with it, and
// ThenWithoutResult hands it to its step.
type Empty struct{}

// Context is what a step receives: the shared model, the previous step's result,
// the services handle and the read-only parameters of the pipeline.
// A new Context is built for every step invocation; none of its fields are ever reassigned.
type Context[R, S any] struct {
	ctx      context.Context
	model    *domain.Model
	result   R
	services S
	params   map[string]any
}

// Context returns the context.Context of the execution.
// Inside a transaction boundary it carries the boundary's state.
func (c *Context[R, S]) Context() context.Context {
	return c.ctx
}

// Model returns the shared model of the execution.
func (c *Context[R, S]) Model() *domain.Model {
	return c.model
}

// Result returns the previous step's output.
func (c *Context[R, S]) Result() R {
	return c.result
}

// Services returns the opaque services handle given to Init.
func (c *Context[R, S]) Services() S {
	return c.services
}

// Param returns a single parameter.
func (c *Context[R, S]) Param(name string) (any, bool) {
	v, ok := c.params[name]
	return v, ok
}

// Params returns a copy of the parameters.
func (c *Context[R, S]) Params() map[string]any {
	return maps.Clone(c.params)
}

// DecodeParams decodes the parameters into target, a pointer to a struct or map.
// Fields are matched with `mapstructure` tags; weakly typed input (e.g. "3" for an int) is accepted.
func (c *Context[R, S]) DecodeParams(target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := dec.Decode(c.params); err != nil {
		return domain.NewValidationError("params", err.Error())
	}
	return nil
}

// ParamAs returns a parameter narrowed to T.
func ParamAs[T, R, S any](c *Context[R, S], name string) (T, bool) {
	var zero T
	v, ok := c.params[name]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// rebind builds the context for the next step around a new result.
func rebind[R2, R, S any](c *Context[R, S], result R2) *Context[R2, S] {
	return &Context[R2, S]{
		ctx:      c.ctx,
		model:    c.model,
		result:   result,
		services: c.services,
		params:   c.params,
	}
}
