package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
)

// ErrTerminal is matched by errors raised when the output cannot host an
// in-place report.
var ErrTerminal = errors.New("terminal error")

// TerminalError reports an output stream that is not an interactive
// terminal, or a failed terminal write.
type TerminalError struct {
	Name string
	Err  error
}

func (e *TerminalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s is not an interactive terminal (use --format json or yaml to redirect output)", e.Name)
}

func (e *TerminalError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTerminal}
	}
	return []error{ErrTerminal, e.Err}
}

// Terminal is the capability the renderer draws through.
type Terminal interface {
	// WriteFrame writes frame text at the cursor.
	WriteFrame(frame []byte) error
	// ClearLines erases the n lines above the cursor and leaves the cursor
	// at the start of the topmost erased line.
	ClearLines(n int) error
}

// ANSITerminal drives a VT100-compatible terminal with escape sequences.
type ANSITerminal struct {
	w    io.Writer
	name string
}

// NewANSITerminal returns a terminal bound to f. It fails with a
// *TerminalError when f is not interactive.
func NewANSITerminal(f *os.File) (*ANSITerminal, error) {
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil, &TerminalError{Name: f.Name()}
	}
	return &ANSITerminal{w: f, name: f.Name()}, nil
}

// NewWriterTerminal returns an ANSI terminal writing to w without checking
// that w is interactive.
func NewWriterTerminal(w io.Writer) *ANSITerminal {
	return &ANSITerminal{w: w, name: "output"}
}

// WriteFrame writes frame unchanged.
func (t *ANSITerminal) WriteFrame(frame []byte) error {
	if _, err := t.w.Write(frame); err != nil {
		return &TerminalError{Name: t.name, Err: err}
	}
	return nil
}

// ClearLines moves up one line and erases it, n times.
func (t *ANSITerminal) ClearLines(n int) error {
	if n <= 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("\r")
	for i := 0; i < n; i++ {
		b.WriteString(ansi.CursorUp(1))
		b.WriteString(ansi.EraseEntireLine)
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return &TerminalError{Name: t.name, Err: err}
	}
	return nil
}
