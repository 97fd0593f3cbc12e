package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/schema"
)

// Script is a compiled-checked Lua chunk. It is safe for concurrent use:
// every evaluation runs in its own interpreter state.
type Script struct {
	name   string
	source string
	lines  []string
	params schema.Schema
}

// paramPattern matches declarations such as "-- @param limit int?".
var paramPattern = regexp.MustCompile(`^\s*--\s*@param\s+([A-Za-z_][A-Za-z0-9_]*)\s+(\S+)`)

// Env is what a script sees as globals: params, result and model.
type Env struct {
	Params map[string]any
	Result any
	Model  map[string]any
}

// New checks that source parses and returns the script.
// Syntax errors are returned as *EvalError. Lines of the form "-- @param name type"
// declare the params the script expects; see package schema for the type strings.
func New(name, source string) (*Script, error) {
	if name == "" {
		return nil, errors.New("script name cannot be empty")
	}
	s := &Script{
		name:   name,
		source: source,
		lines:  strings.Split(source, "\n"),
	}

	params, err := declaredParams(s.lines)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	s.params = params

	l := lua.NewState()
	if err := s.load(l); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads a script from disk. The file name without extension names the script.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(name, string(data))
}

// Name returns the chunk name used in error positions.
func (s *Script) Name() string {
	return s.name
}

// Params returns the declared params. It is nil when the script declares none.
func (s *Script) Params() schema.Schema {
	return s.params
}

func declaredParams(lines []string) (schema.Schema, error) {
	var params schema.Schema
	for i, line := range lines {
		match := paramPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		typ, err := schema.ParseType(match[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: param %s: %w", i+1, match[1], err)
		}
		if params == nil {
			params = schema.Schema{}
		}
		params[match[1]] = typ
	}
	return params, nil
}

// Eval runs the script and returns its first return value converted to Go.
// Lua integers come back as int, other numbers as float64, sequences as []any and
// tables as map[string]any. Params that do not match the declarations fail with
// validation errors before the script runs.
func (s *Script) Eval(ctx context.Context, env Env) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := schema.Validate(s.params, env.Params); err != nil {
		return nil, err
	}

	l := lua.NewState()
	lua.OpenLibraries(l)

	raised := &failures{}
	registerFailures(l, raised)

	pushValue(l, env.Params)
	l.SetGlobal("params")
	pushValue(l, env.Result)
	l.SetGlobal("result")
	pushValue(l, env.Model)
	l.SetGlobal("model")

	if err := s.load(l); err != nil {
		return nil, err
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		msg := errorMessage(l, err)
		if typed, ok := raised.match(msg); ok {
			return nil, typed
		}
		return nil, s.newEvalError(msg)
	}

	v := toGo(l, -1)
	l.Pop(1)
	return v, nil
}

func (s *Script) load(l *lua.State) error {
	if err := lua.LoadBuffer(l, s.source, "="+s.name, ""); err != nil {
		return s.newEvalError(errorMessage(l, err))
	}
	return nil
}

// errorMessage pops the error object left by a failed load or call.
func errorMessage(l *lua.State, err error) string {
	msg, ok := l.ToString(-1)
	l.Pop(1)
	if !ok || msg == "" {
		return err.Error()
	}
	return msg
}

// failures remembers the typed failure of the last fail_* call and the error value it raised.
// A failure caught by pcall is only reported if that same value ends the script.
type failures struct {
	err   error
	token string
	count int
}

func (f *failures) raise(l *lua.State, err error) {
	f.count++
	f.err = err
	f.token = fmt.Sprintf("%s (failure %d)", err, f.count)
	l.PushString(f.token)
	l.Error()
}

func (f *failures) match(msg string) (error, bool) {
	if f.err == nil || msg != f.token {
		return nil, false
	}
	return f.err, true
}

// registerFailures exposes fail_status(code, message) and fail_validation(message [, field]).
// Both abort the script with a typed failure.
func registerFailures(l *lua.State, raised *failures) {
	l.Register("fail_status", func(l *lua.State) int {
		code := lua.CheckInteger(l, 1)
		msg := lua.OptString(l, 2, "")
		raised.raise(l, domain.NewStatusError(code, msg))
		return 0
	})
	l.Register("fail_validation", func(l *lua.State) int {
		msg := lua.CheckString(l, 1)
		field := lua.OptString(l, 2, "")
		raised.raise(l, domain.NewValidationError(field, msg))
		return 0
	})
}
