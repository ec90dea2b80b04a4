package expr

import (
	"fmt"
	"strings"
)

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Src string
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d in %q: %s", e.Pos, e.Src, e.Msg)
}

// Show renders the source with a caret under the offending position.
func (e *SyntaxError) Show() string {
	pos := e.Pos
	if pos > len(e.Src) {
		pos = len(e.Src)
	}
	var b strings.Builder
	b.WriteString(e.Msg)
	b.WriteString("\n  ")
	b.WriteString(e.Src)
	b.WriteString("\n  ")
	b.WriteString(strings.Repeat(" ", pos))
	b.WriteString("^")
	return b.String()
}

// EvalError is returned when evaluation fails, for example when reading a
// member of nil or calling something that is not a function.
type EvalError struct {
	Pos int
	Msg string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("eval error at %d: %s", e.Pos, e.Msg)
}

func evalErrorf(pos int, format string, args ...any) error {
	return &EvalError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
