package metrics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInput is matched by every malformed-input error produced while
// ingesting rows.
var ErrInput = errors.New("malformed input")

// ShapeError reports a row whose value count does not match the header.
type ShapeError struct {
	Line  int    // 1-based input line, 0 when unknown
	Label string // row label
	Got   int    // values present in the row
	Want  int    // metrics declared by the header

	// Keyed rows name the metrics they lack and the keys nobody declared.
	Missing []string
	Unknown []string
}

func (e *ShapeError) Error() string {
	prefix := e.Label
	if e.Line > 0 {
		prefix = fmt.Sprintf("line %d (%s)", e.Line, e.Label)
	}
	if len(e.Missing) == 0 && len(e.Unknown) == 0 {
		return fmt.Sprintf("%s: got %d values, expected %d", prefix, e.Got, e.Want)
	}
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing metrics "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown keys "+strings.Join(e.Unknown, ", "))
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

func (e *ShapeError) Unwrap() error { return ErrInput }

// ParseError reports a value that is not a finite number.
type ParseError struct {
	Line   int    // 1-based input line, 0 when unknown
	Column int    // 1-based column including the label column
	Metric string // header name of the column
	Value  string // offending text
	Err    error  // underlying conversion error, if any
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("line %d, column %d (%s): invalid value %q", e.Line, e.Column, e.Metric, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInput}
	}
	return []error{ErrInput, e.Err}
}
