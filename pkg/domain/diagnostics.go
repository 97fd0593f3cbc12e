package domain

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"
)

var fullTrace atomic.Bool

// SetFullTrace selects between full and short failure diagnostics for the whole process.
// It may be flipped at runtime.
func SetFullTrace(enabled bool) {
	fullTrace.Store(enabled)
}

// FullTrace reports whether full diagnostics are enabled.
func FullTrace() bool {
	return fullTrace.Load()
}

type stackTracer interface {
	StackTrace() string
}

// Diagnose renders err for the model's diagnostic field.
// In short mode it is the failure's type name; in full mode it is the chain of
// wrapped messages followed by the first captured call stack.
func Diagnose(err error) string {
	if err == nil {
		return ""
	}
	if !FullTrace() {
		return fmt.Sprintf("%T", err)
	}

	var b strings.Builder
	trace := ""
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "%T: %s\n", e, e.Error())
		if st, ok := e.(stackTracer); ok && trace == "" {
			trace = st.StackTrace()
		}
	}
	if trace != "" {
		b.WriteString(trace)
	}
	return strings.TrimRight(b.String(), "\n")
}

type stack []uintptr

func callers() stack {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return stack(pcs[:n])
}

func (s stack) String() string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(s)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "\t%s\n\t\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// isNil reports whether v is a nil interface or a typed nil of a nillable kind.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
