package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/torosent/benchdiff/internal/metrics"
)

const (
	labelKey        = "label"
	maxJSONLineSize = 1 << 20
)

// JSONLSource reads one JSON object per line. Each object carries a
// "label" string and one number per metric. The first object's keys fix
// the metric order.
type JSONLSource struct {
	scanner *bufio.Scanner
	line    int
	metrics []string
	index   map[string]int
	pending *Row
	started bool
}

// NewJSONL creates a JSON-lines source reading from r.
func NewJSONL(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLineSize)
	return &JSONLSource{scanner: scanner}
}

// Header reads the first object and derives the metric names from it.
func (s *JSONLSource) Header(ctx context.Context) ([]string, error) {
	if s.started {
		return append([]string(nil), s.metrics...), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := s.scan()
	if errors.Is(err, io.EOF) {
		return nil, inputError("empty input: no JSON objects")
	}
	if err != nil {
		return nil, err
	}
	obj, err := s.parse(text)
	if err != nil {
		return nil, err
	}

	s.index = make(map[string]int)
	obj.ForEach(func(key, _ gjson.Result) bool {
		name := key.String()
		if name == labelKey {
			return true
		}
		if _, dup := s.index[name]; !dup {
			s.index[name] = len(s.metrics)
			s.metrics = append(s.metrics, name)
		}
		return true
	})
	if len(s.metrics) == 0 {
		return nil, inputError("line %d: object declares no metrics", s.line)
	}
	s.started = true

	row, err := s.row(obj)
	if err != nil {
		return nil, err
	}
	s.pending = &row
	return append([]string(nil), s.metrics...), nil
}

// Next returns the next row.
func (s *JSONLSource) Next(ctx context.Context) (Row, error) {
	if !s.started {
		if _, err := s.Header(ctx); err != nil {
			return Row{}, err
		}
	}
	if s.pending != nil {
		row := *s.pending
		s.pending = nil
		return row, nil
	}
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	text, err := s.scan()
	if err != nil {
		return Row{}, err
	}
	obj, err := s.parse(text)
	if err != nil {
		return Row{}, err
	}
	return s.row(obj)
}

func (s *JSONLSource) scan() (string, error) {
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text != "" {
			return text, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: read JSON lines: %w", metrics.ErrInput, err)
	}
	return "", io.EOF
}

func (s *JSONLSource) parse(text string) (gjson.Result, error) {
	if !gjson.Valid(text) {
		return gjson.Result{}, inputError("line %d: invalid JSON", s.line)
	}
	obj := gjson.Parse(text)
	if !obj.IsObject() {
		return gjson.Result{}, inputError("line %d: expected a JSON object", s.line)
	}
	return obj, nil
}

func (s *JSONLSource) row(obj gjson.Result) (Row, error) {
	row := Row{Line: s.line, Fields: make([]string, len(s.metrics))}
	present := make([]bool, len(s.metrics))
	var unknown []string
	hasLabel := false
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == labelKey {
			hasLabel = true
			row.Label = strings.TrimSpace(value.String())
			return true
		}
		idx, ok := s.index[name]
		if !ok {
			unknown = append(unknown, name)
			return true
		}
		if value.Type == gjson.String {
			row.Fields[idx] = value.Raw
		} else {
			row.Fields[idx] = strings.TrimSpace(value.Raw)
		}
		present[idx] = true
		return true
	})
	if !hasLabel {
		return Row{}, inputError("line %d: missing %q field", s.line, labelKey)
	}
	var missing []string
	for i, ok := range present {
		if !ok {
			missing = append(missing, s.metrics[i])
		}
	}
	if len(missing) > 0 || len(unknown) > 0 {
		return Row{}, &metrics.ShapeError{
			Line:    s.line,
			Label:   row.Label,
			Got:     len(s.metrics) - len(missing),
			Want:    len(s.metrics),
			Missing: missing,
			Unknown: unknown,
		}
	}
	return row, nil
}
