package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRunNotFound is returned when a run ID cannot be found in a RunStore.
var ErrRunNotFound = errors.New("run not found")

// ErrTupleArity is returned when a tuple would hold fewer than 1 or more than MaxTupleArity values.
var ErrTupleArity = errors.New("invalid tuple arity")

// ErrBatchArity is returned when a batch model operation receives fewer than 2 or more than 6 slots.
var ErrBatchArity = errors.New("invalid batch arity")

// IndexError reports a positional access outside a tuple.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for tuple of length %d", e.Index, e.Len)
}

// TypeMismatchError reports a value that does not fit the type of the slot it is read from or written to.
type TypeMismatchError struct {
	Name string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Name, e.Want, e.Got)
}

// StatusError is a failure carrying an HTTP-like status code.
// Pipelines record it in the model and return it to the caller.
type StatusError struct {
	Code    int
	Message string
	Err     error
	stack   stack
}

// NewStatusError creates a StatusError with the given code and message.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message, stack: callers()}
}

// WrapStatus annotates err with a status code.
func WrapStatus(code int, err error) *StatusError {
	return &StatusError{Code: code, Message: err.Error(), Err: err, stack: callers()}
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d: %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the carried status code.
func (e *StatusError) StatusCode() int { return e.Code }

// StackTrace returns the call stack captured at construction.
func (e *StatusError) StackTrace() string { return e.stack.String() }

// NotFound is shorthand for a 404 StatusError.
func NotFound(format string, args ...any) *StatusError {
	return &StatusError{Code: http.StatusNotFound, Message: fmt.Sprintf(format, args...), stack: callers()}
}

// ValidationError is a failure the pipeline absorbs into the model instead of returning.
type ValidationError struct {
	Field   string
	Message string
	Err     error
	stack   stack
}

// NewValidationError creates a ValidationError for an optional field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, stack: callers()}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StackTrace returns the call stack captured at construction.
func (e *ValidationError) StackTrace() string { return e.stack.String() }

// SourceLocation points into the source of an embedded script.
type SourceLocation struct {
	Snippet  string `json:"snippet"`
	Position string `json:"position"`
}

func (l SourceLocation) String() string {
	if l.Snippet == "" {
		return l.Position
	}
	return fmt.Sprintf("%s: %s", l.Position, l.Snippet)
}

// ScriptFailure is implemented by errors raised while evaluating an embedded script.
// The location is optional.
type ScriptFailure interface {
	error
	SourceLocation() (SourceLocation, bool)
}

// ScriptError is the diagnostic failure a pipeline returns for a ScriptFailure.
type ScriptError struct {
	Message  string
	Location *SourceLocation
	Err      error
	stack    stack
}

// NewScriptError wraps a script failure, extracting its message and location.
func NewScriptError(failure ScriptFailure) *ScriptError {
	se := &ScriptError{Message: failure.Error(), Err: failure, stack: callers()}
	if loc, ok := failure.SourceLocation(); ok {
		se.Location = &loc
	}
	return se
}

func (e *ScriptError) Error() string {
	if e.Location == nil {
		return "script error: " + e.Message
	}
	return fmt.Sprintf("script error at %s: %s", e.Location, e.Message)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// StackTrace returns the call stack captured at construction.
func (e *ScriptError) StackTrace() string { return e.stack.String() }

// FailureClass enumerates the outcomes a pipeline distinguishes on error.
type FailureClass int

const (
	ClassNone FailureClass = iota
	ClassStatus
	ClassValidation
	ClassScript
	ClassOther
)

func (c FailureClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassStatus:
		return "status"
	case ClassValidation:
		return "validation"
	case ClassScript:
		return "script"
	case ClassOther:
		return "other"
	default:
		return fmt.Sprintf("FailureClass(%d)", int(c))
	}
}

// Failure is a classified error.
type Failure struct {
	Class FailureClass
	Err   error
}

type statusCoder interface {
	StatusCode() int
}

// Classify assigns err to exactly one failure class.
// The checks run in a fixed order: status, validation, script, other.
func Classify(err error) Failure {
	if err == nil {
		return Failure{Class: ClassNone}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return Failure{Class: ClassStatus, Err: err}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return Failure{Class: ClassValidation, Err: err}
	}

	var sf ScriptFailure
	if errors.As(err, &sf) {
		return Failure{Class: ClassScript, Err: err}
	}

	return Failure{Class: ClassOther, Err: err}
}

// Status returns the status code carried by err, if any.
func Status(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// AsScriptFailure extracts the ScriptFailure wrapped in err.
func AsScriptFailure(err error) (ScriptFailure, bool) {
	var sf ScriptFailure
	if errors.As(err, &sf) {
		return sf, true
	}
	return nil, false
}
