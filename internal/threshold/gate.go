package threshold

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/torosent/benchdiff/internal/diff"
	"github.com/torosent/benchdiff/internal/pairing"
)

// GateLevel is the interval level the regression gate tests against.
const GateLevel = 0.95

// ErrRegression is matched by the error returned when the gate fails.
var ErrRegression = errors.New("regression detected")

// Regression is one metric whose candidate mean exceeds the baseline by
// more than the interval half-width. Err is set when the delta is positive
// but no interval could be computed for it.
type Regression struct {
	Pair      pairing.Pair
	Metric    string
	Delta     float64
	HalfWidth float64
	Err       error
}

// RegressionError lists every regression found by Gate.
type RegressionError struct {
	Level       float64
	Regressions []Regression
}

func (e *RegressionError) Error() string {
	level := strconv.FormatFloat(e.Level*100, 'g', 10, 64)
	parts := make([]string, 0, len(e.Regressions))
	for _, r := range e.Regressions {
		if r.Err != nil {
			parts = append(parts, fmt.Sprintf("%s %s: delta %+.4g cannot be bounded: %v", r.Pair, r.Metric, r.Delta, r.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s: delta %+.4g exceeds %s%% interval half-width %.4g",
			r.Pair, r.Metric, r.Delta, level, r.HalfWidth))
	}
	return "regression: " + strings.Join(parts, "; ")
}

func (e *RegressionError) Unwrap() error { return ErrRegression }

// Gate fails when any pair shows a positive delta larger than its interval
// half-width at level. Metrics with fewer than two samples on either side
// are skipped. A positive delta whose interval is out of float64 range
// fails the gate.
func Gate(diffs []diff.Diff, level float64) error {
	var found []Regression
	for _, d := range diffs {
		for _, iv := range d.Intervals {
			h, err := iv.HalfWidth(level)
			if errors.Is(err, diff.ErrOutOfRange) {
				if !(iv.Delta() <= 0) {
					found = append(found, Regression{Pair: d.Pair, Metric: iv.Name, Delta: iv.Delta(), Err: err})
				}
				continue
			}
			if err != nil {
				continue
			}
			if iv.Delta() > h {
				found = append(found, Regression{
					Pair:      d.Pair,
					Metric:    iv.Name,
					Delta:     iv.Delta(),
					HalfWidth: h,
				})
			}
		}
	}
	if len(found) == 0 {
		return nil
	}
	return &RegressionError{Level: level, Regressions: found}
}
