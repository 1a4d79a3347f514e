// Package source reads benchmark sample rows from an input stream.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/torosent/benchdiff/internal/metrics"
)

// Row is one labeled observation line. Fields holds the raw text of one
// value per metric, in header order.
type Row struct {
	Line   int
	Label  string
	Fields []string
}

// Source yields rows sequentially. Header must be called once before Next.
// Next returns io.EOF once the input is exhausted.
type Source interface {
	// Header returns the metric names declared by the input.
	Header(ctx context.Context) ([]string, error)

	// Next returns the next row.
	Next(ctx context.Context) (Row, error)
}

// Input formats.
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// New returns a Source decoding r in the given format.
func New(r io.Reader, format string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return NewCSV(r), nil
	case FormatJSONL, "ndjson":
		return NewJSONL(r), nil
	default:
		return nil, fmt.Errorf("unsupported input format %q (supported: %s, %s)", format, FormatCSV, FormatJSONL)
	}
}

// Open opens path ("-" for standard input) and returns a decoding Source
// plus the closer for the underlying file.
func Open(path, format string) (Source, io.Closer, error) {
	var f *os.File
	if path == "" || path == "-" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
	}
	src, err := New(f, format)
	if err != nil {
		if f != os.Stdin {
			f.Close()
		}
		return nil, nil, err
	}
	if f == os.Stdin {
		return src, stdinCloser{}, nil
	}
	return src, f, nil
}

// stdinCloser leaves standard input open for the rest of the process.
type stdinCloser struct{}

func (stdinCloser) Close() error { return nil }

func inputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", metrics.ErrInput, fmt.Sprintf(format, args...))
}
