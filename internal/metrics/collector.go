package metrics

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Metric is the stable index of one numeric column in header order.
type Metric int

// Bench is the label identifying one benchmark run's sample series.
type Bench string

// Measurements owns the running aggregates of every (label, metric) pair.
// It is not safe for concurrent use; the pipeline driver is its only writer.
type Measurements struct {
	names   []string
	benches []Bench
	stats   map[Bench][]RunningStat
}

// NewMeasurements creates an empty accumulator for the given metric names.
func NewMeasurements(names []string) *Measurements {
	return &Measurements{
		names: append([]string(nil), names...),
		stats: make(map[Bench][]RunningStat),
	}
}

// Update folds one row of samples for label into the aggregates. samples
// must hold exactly one value per metric, in header order.
func (m *Measurements) Update(label Bench, samples []float64) error {
	if len(samples) != len(m.names) {
		return &ShapeError{Label: string(label), Got: len(samples), Want: len(m.names)}
	}
	series, ok := m.stats[label]
	if !ok {
		series = make([]RunningStat, len(m.names))
		m.stats[label] = series
		m.benches = append(m.benches, label)
	}
	for i, x := range samples {
		series[i].Add(x)
	}
	return nil
}

// ParseSamples converts the raw fields of one row into samples. line is
// used for error context only.
func (m *Measurements) ParseSamples(line int, label string, fields []string) ([]float64, error) {
	if len(fields) != len(m.names) {
		return nil, &ShapeError{Line: line, Label: label, Got: len(fields), Want: len(m.names)}
	}
	samples := make([]float64, len(fields))
	for i, raw := range fields {
		text := strings.TrimSpace(raw)
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) {
				err = numErr.Err
			}
			return nil, &ParseError{Line: line, Column: i + 2, Metric: m.names[i], Value: raw, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ParseError{Line: line, Column: i + 2, Metric: m.names[i], Value: raw}
		}
		samples[i] = v
	}
	return samples, nil
}

// Stat returns the aggregate for (label, metric). ok is false when the
// label has not been observed or the metric is out of range.
func (m *Measurements) Stat(label Bench, metric Metric) (RunningStat, bool) {
	series, ok := m.stats[label]
	if !ok || metric < 0 || int(metric) >= len(series) {
		return RunningStat{}, false
	}
	return series[metric], true
}

// Has reports whether at least one row was seen for label.
func (m *Measurements) Has(label Bench) bool {
	_, ok := m.stats[label]
	return ok
}

// Benches returns the observed labels in first-seen order.
func (m *Measurements) Benches() []Bench {
	return append([]Bench(nil), m.benches...)
}

// Metrics returns the metric names in header order.
func (m *Measurements) Metrics() []string {
	return append([]string(nil), m.names...)
}

// MetricName returns the header name of metric.
func (m *Measurements) MetricName(metric Metric) string {
	if metric < 0 || int(metric) >= len(m.names) {
		return ""
	}
	return m.names[metric]
}

// NumMetrics returns the number of declared metrics.
func (m *Measurements) NumMetrics() int { return len(m.names) }
