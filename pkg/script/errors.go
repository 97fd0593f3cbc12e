package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/warp/pkg/domain"
)

// EvalError is a failure raised while loading or running a script.
// It implements domain.ScriptFailure, so pipelines classify it as a script failure.
type EvalError struct {
	Script  string
	Line    int
	Message string
	snippet string
}

var _ domain.ScriptFailure = (*EvalError)(nil)

func (e *EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Script, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Script, e.Message)
}

// SourceLocation implements domain.ScriptFailure.
func (e *EvalError) SourceLocation() (domain.SourceLocation, bool) {
	if e.Line <= 0 {
		return domain.SourceLocation{}, false
	}
	return domain.SourceLocation{
		Snippet:  e.snippet,
		Position: fmt.Sprintf("%s:%d", e.Script, e.Line),
	}, true
}

// newEvalError parses a Lua message of the form "<chunk>:<line>: <text>".
// Messages without a position keep Line at zero.
func (s *Script) newEvalError(msg string) *EvalError {
	e := &EvalError{Script: s.name, Message: msg}

	rest, ok := strings.CutPrefix(msg, s.name+":")
	if !ok {
		return e
	}
	num, text, ok := strings.Cut(rest, ":")
	if !ok {
		return e
	}
	line, err := strconv.Atoi(num)
	if err != nil {
		return e
	}

	e.Message = strings.TrimSpace(text)
	if line < 1 {
		return e
	}
	e.Line = line
	if line <= len(s.lines) {
		e.snippet = strings.TrimSpace(s.lines[line-1])
	}
	return e
}
