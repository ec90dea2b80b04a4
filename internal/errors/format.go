package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
	ansiBold  = "\033[1m"
)

// painter applies ANSI styles, or nothing when colors are off.
type painter bool

func (p painter) paint(style, text string) string {
	if !p {
		return text
	}
	return style + text + ansiReset
}

// Format renders the error for a terminal: the code and message, the
// location, the offending source with a caret under Offset, the detail, the
// hint and the documentation link. color enables ANSI styles.
func (e *GalliaError) Format(color bool) string {
	p := painter(color)
	var b strings.Builder

	head := e.Message
	if e.Code != "" {
		head = e.Code + " " + head
	}
	b.WriteString(p.paint(ansiRed+ansiBold, "error: ") + p.paint(ansiBold, head) + "\n")
	if e.Location != nil {
		fmt.Fprintf(&b, "  at %s\n", p.paint(ansiCyan, e.Location.String()))
	}

	if e.Source != "" {
		fmt.Fprintf(&b, "\n    %s\n", e.Source)
		if e.Offset >= 0 && e.Offset <= len(e.Source) {
			fmt.Fprintf(&b, "    %s%s\n", strings.Repeat(" ", e.Offset), p.paint(ansiRed, "^"))
		}
	}

	if e.Detail != "" {
		fmt.Fprintf(&b, "\n  %s\n", e.Detail)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  cause: %s\n", e.Wrapped)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  %s %s\n", p.paint(ansiCyan, "Hint:"), e.Suggestion)
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s\n", p.paint(ansiGray, "Learn more: "+e.DocURL))
	}
	return b.String()
}

// FormatCompact returns the error on one line, prefixed by its location.
func (e *GalliaError) FormatCompact() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Location != nil {
		return e.Location.String() + ": " + msg
	}
	return msg
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Source     string        `json:"source,omitempty"`
	Offset     *int          `json:"offset,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *GalliaError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Source != "" {
		out.Source = e.Source
		out.Offset = &e.Offset
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// Split returns the individual failures of an aggregated error, such as the
// root failures of a mount. Any other error is returned alone.
func Split(err error) []error {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if stderrors.As(err, &merr) && merr.Len() > 0 {
		return merr.WrappedErrors()
	}
	return []error{err}
}

// FormatAll formats every failure of err, coded errors with Format and the
// others with their message, numbered when there is more than one.
func FormatAll(err error, color bool) string {
	errs := Split(err)
	var b strings.Builder
	for i, err := range errs {
		if len(errs) > 1 {
			fmt.Fprintf(&b, "[%d/%d] ", i+1, len(errs))
		}
		var ge *GalliaError
		if stderrors.As(err, &ge) {
			b.WriteString(ge.Format(color))
		} else {
			b.WriteString(err.Error() + "\n")
		}
		if i < len(errs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
