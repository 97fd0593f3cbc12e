package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventExecuteStart EventType = "execute_start"
	EventExecuteEnd   EventType = "execute_end"
	EventFailure      EventType = "failure"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Pipeline  string    `json:"pipeline,omitempty"`
}

// ExecutionEvent marks the start or the end of a pipeline execution.
// Outcome and Duration are only set on end events.
type ExecutionEvent struct {
	EventBase
	Outcome  FailureClass  `json:"outcome"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// FailureEvent is emitted after a failure has been classified and recorded.
type FailureEvent struct {
	EventBase
	Class    FailureClass `json:"class"`
	Message  string       `json:"message"`
	Absorbed bool         `json:"absorbed"`
}

// LifecycleHooks defines callbacks for execution observability.
// Nil fields are skipped.
type LifecycleHooks struct {
	OnExecuteStart func(context.Context, *ExecutionEvent)
	OnExecuteEnd   func(context.Context, *ExecutionEvent)
	OnFailure      func(context.Context, *FailureEvent)
}

// MergeHooks fans every callback out to all of the given hooks, in order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range hooks {
		h := h
		if h.OnExecuteStart != nil {
			prev := merged.OnExecuteStart
			merged.OnExecuteStart = func(ctx context.Context, e *ExecutionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnExecuteStart(ctx, e)
			}
		}
		if h.OnExecuteEnd != nil {
			prev := merged.OnExecuteEnd
			merged.OnExecuteEnd = func(ctx context.Context, e *ExecutionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnExecuteEnd(ctx, e)
			}
		}
		if h.OnFailure != nil {
			prev := merged.OnFailure
			merged.OnFailure = func(ctx context.Context, e *FailureEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnFailure(ctx, e)
			}
		}
	}
	return merged
}

// Finalizable is implemented by model values that need a last pass after a successful execution.
type Finalizable interface {
	Finalize()
}
