package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/benchdiff/internal/diff"
	"github.com/torosent/benchdiff/internal/pairing"
)

// Threshold represents an assertion on one metric of every compared pair.
type Threshold struct {
	Metric    string  // header name, e.g. "ns/op"
	Aggregate string  // "delta", "delta_pct", "ci", "ci_pct" or "p"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // value to compare against
	Raw       string  // original threshold string for display
}

// Result represents the outcome of evaluating a threshold on one pair.
type Result struct {
	Threshold Threshold
	Pair      pairing.Pair
	Actual    float64
	Pass      bool
	Message   string
}

// Aggregates accepted by Parse.
const (
	AggregateDelta    = "delta"
	AggregateDeltaPct = "delta_pct"
	AggregateCI       = "ci"
	AggregateCIPct    = "ci_pct"
	AggregateP        = "p"
)

// Evaluator evaluates thresholds against computed diffs.
type Evaluator struct {
	thresholds []Threshold
	level      float64
}

// NewEvaluator creates a new threshold evaluator. level is the confidence
// level used for the ci aggregates.
func NewEvaluator(thresholds []Threshold, level float64) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
		level:      level,
	}
}

// Evaluate checks every threshold against every pair that has the metric.
// A threshold whose metric appears in no pair yields a single failing result.
func (e *Evaluator) Evaluate(diffs []diff.Diff) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	var results []Result
	for _, t := range e.thresholds {
		matched := false
		for _, d := range diffs {
			iv, ok := findInterval(d, t.Metric)
			if !ok {
				continue
			}
			matched = true
			results = append(results, e.evaluateOne(t, d.Pair, iv))
		}
		if !matched {
			results = append(results, Result{
				Threshold: t,
				Pass:      false,
				Message:   fmt.Sprintf("✗ %s: error: no pair reports metric %q", t.Raw, t.Metric),
			})
		}
	}
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Pass {
			failed = append(failed, r)
		}
	}
	return failed
}

func (e *Evaluator) evaluateOne(t Threshold, pair pairing.Pair, iv diff.Interval) Result {
	actual, err := extractValue(t.Aggregate, iv, e.level)
	if err != nil {
		return Result{
			Threshold: t,
			Pair:      pair,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("✗ %s [%s]: error: %v", t.Raw, pair, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s [%s]: %.4g %s %.4g", status, t.Raw, pair, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Pair:      pair,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

var pattern = regexp.MustCompile(`^(.+):([a-z_]+)\s*(<=|>=|==|!=|<|>)\s*(\S+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "ns/op:delta < 0"         (absolute mean difference)
// - "ns/op:delta_pct <= 5"    (difference as a percentage of the baseline mean)
// - "ns/op:ci < 10"           (confidence interval half-width)
// - "ns/op:ci_pct < 2"        (half-width as a percentage of the baseline mean)
// - "B/op:p > 0.05"           (Welch t-test p-value)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'ns/op:delta_pct < 5')", s)
	}

	metric := strings.TrimSpace(matches[1])
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil || math.IsNaN(value) {
		return Threshold{}, fmt.Errorf("invalid threshold value %q", valueStr)
	}

	if metric == "" {
		return Threshold{}, fmt.Errorf("missing metric in threshold %q", s)
	}

	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: delta, delta_pct, ci, ci_pct, p)", aggregate)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, errors.New("threshold parsing errors: " + strings.Join(errs, "; "))
	}

	return result, nil
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case AggregateDelta, AggregateDeltaPct, AggregateCI, AggregateCIPct, AggregateP:
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	valid := []string{"<", "<=", ">", ">=", "=="}
	for _, v := range valid {
		if operator == v {
			return true
		}
	}
	return false
}

func findInterval(d diff.Diff, metric string) (diff.Interval, bool) {
	for _, iv := range d.Intervals {
		if iv.Name == metric {
			return iv, true
		}
	}
	return diff.Interval{}, false
}

func extractValue(aggregate string, iv diff.Interval, level float64) (float64, error) {
	switch aggregate {
	case AggregateDelta:
		return iv.Delta(), nil
	case AggregateDeltaPct:
		pct, ok := iv.Relative()
		if !ok {
			return 0, fmt.Errorf("baseline mean of %s is zero", iv.Name)
		}
		return pct, nil
	case AggregateCI:
		return iv.HalfWidth(level)
	case AggregateCIPct:
		h, err := iv.HalfWidth(level)
		if err != nil {
			return 0, err
		}
		mean, _ := iv.Baseline().Mean()
		if mean == 0 {
			return 0, fmt.Errorf("baseline mean of %s is zero", iv.Name)
		}
		return h / math.Abs(mean) * 100, nil
	case AggregateP:
		return iv.PValue()
	default:
		return 0, fmt.Errorf("unsupported aggregate %q", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
