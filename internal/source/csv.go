package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/torosent/benchdiff/internal/metrics"
)

// CSVSource reads a header row followed by "label,value..." rows.
type CSVSource struct {
	reader  *csv.Reader
	metrics []string
	started bool
}

// NewCSV creates a CSV source reading from r. The first field of the header
// names the label column and is ignored.
func NewCSV(r io.Reader) *CSVSource {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Row width is validated against the header so the error carries
	// label context.
	reader.FieldsPerRecord = -1
	return &CSVSource{reader: reader}
}

// Header reads and returns the metric names.
func (s *CSVSource) Header(ctx context.Context) ([]string, error) {
	if s.started {
		return append([]string(nil), s.metrics...), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, inputError("empty input: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read CSV header: %w", metrics.ErrInput, err)
	}
	if len(record) < 2 {
		return nil, inputError("header declares no metric columns")
	}
	names := make([]string, 0, len(record)-1)
	for _, name := range record[1:] {
		names = append(names, strings.TrimSpace(name))
	}
	s.metrics = names
	s.started = true
	return append([]string(nil), names...), nil
}

// Next returns the next data row.
func (s *CSVSource) Next(ctx context.Context) (Row, error) {
	if !s.started {
		if _, err := s.Header(ctx); err != nil {
			return Row{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return Row{}, io.EOF
	}
	if err != nil {
		return Row{}, fmt.Errorf("%w: read CSV: %w", metrics.ErrInput, err)
	}
	line, _ := s.reader.FieldPos(0)
	return Row{
		Line:   line,
		Label:  strings.TrimSpace(record[0]),
		Fields: record[1:],
	}, nil
}
