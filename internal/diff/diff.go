// Package diff compares the running statistics of two benchmark labels.
//
// Every comparison is a pure snapshot: [Compute] reads the accumulator,
// never mutates it, and returns immutable [Interval] values per metric. The
// standard error uses the independent two-sample (Welch) form without a
// pooled variance. Interval half-widths use Student's t quantile at the
// Welch–Satterthwaite degrees of freedom, falling back to the normal
// quantile for very large samples.
package diff

import (
	"errors"
	"math"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/torosent/benchdiff/internal/metrics"
	"github.com/torosent/benchdiff/internal/pairing"
)

// ErrInsufficientData is returned by interval accessors when either side
// has fewer than two samples for the metric.
var ErrInsufficientData = errors.New("insufficient data")

// ErrOutOfRange is returned by interval accessors when the samples are so
// large that the variances or the interval no longer fit in a float64.
var ErrOutOfRange = errors.New("interval out of float64 range")

// normalDOF is the degrees of freedom above which the t quantile is
// replaced by the normal one.
const normalDOF = 1e6

// Interval is the difference between two labels for one metric.
type Interval struct {
	Metric metrics.Metric
	Name   string

	base metrics.RunningStat
	cand metrics.RunningStat

	delta  float64
	stderr float64
	dof    float64
	ok     bool
	self   bool
	inf    bool
}

// Between compares two aggregates of the same metric. Both must hold at
// least one sample.
func Between(metric metrics.Metric, name string, base, cand metrics.RunningStat) Interval {
	bm, _ := base.Mean()
	cm, _ := cand.Mean()
	iv := Interval{
		Metric: metric,
		Name:   name,
		base:   base,
		cand:   cand,
		delta:  cm - bm,
	}
	bv, bok := base.Variance()
	cv, cok := cand.Variance()
	if !bok || !cok {
		return iv
	}
	iv.ok = true

	nb := float64(base.Count())
	nc := float64(cand.Count())
	a := bv / nb
	b := cv / nc
	iv.stderr = math.Hypot(math.Sqrt(a), math.Sqrt(b))
	if a+b > 0 {
		r := share(a, b)
		iv.dof = 1 / (r*r/(nb-1) + (1-r)*(1-r)/(nc-1))
	} else {
		iv.dof = nb + nc - 2
	}
	iv.inf = !isFinite(iv.delta) || !isFinite(iv.stderr) || !isFinite(iv.dof)
	return iv
}

// share returns a/(a+b) without forming a+b, which may overflow.
func share(a, b float64) float64 {
	if a >= b {
		return 1 / (1 + b/a)
	}
	q := a / b
	return q / (1 + q)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// selfInterval compares an aggregate with itself. The samples are
// identical, so the difference is exactly zero with no uncertainty.
func selfInterval(metric metrics.Metric, name string, s metrics.RunningStat) Interval {
	iv := Interval{Metric: metric, Name: name, base: s, cand: s, self: true}
	if s.Count() >= 2 {
		iv.ok = true
		iv.dof = float64(s.Count() - 1)
	}
	return iv
}

// Delta returns candidate mean minus baseline mean.
func (iv Interval) Delta() float64 { return iv.delta }

// Sufficient reports whether both sides have at least two samples.
func (iv Interval) Sufficient() bool { return iv.ok }

func (iv Interval) check() error {
	switch {
	case !iv.ok:
		return ErrInsufficientData
	case iv.inf:
		return ErrOutOfRange
	}
	return nil
}

// StdErr returns the Welch standard error of the difference.
func (iv Interval) StdErr() (float64, error) {
	if err := iv.check(); err != nil {
		return 0, err
	}
	return iv.stderr, nil
}

// DOF returns the Welch–Satterthwaite degrees of freedom.
func (iv Interval) DOF() (float64, error) {
	if err := iv.check(); err != nil {
		return 0, err
	}
	return iv.dof, nil
}

// HalfWidth returns h such that [delta-h, delta+h] is the two-sided
// confidence interval for the true mean difference at level (e.g. 0.95).
func (iv Interval) HalfWidth(level float64) (float64, error) {
	if err := iv.check(); err != nil {
		return 0, err
	}
	if iv.stderr == 0 || level <= 0 {
		return 0, nil
	}
	if level >= 1 {
		return math.Inf(1), nil
	}
	h := quantile(1-(1-level)/2, iv.dof) * iv.stderr
	if !isFinite(h) {
		return 0, ErrOutOfRange
	}
	return h, nil
}

// Bounds returns the interval endpoints at level.
func (iv Interval) Bounds(level float64) (lo, hi float64, err error) {
	h, err := iv.HalfWidth(level)
	if err != nil {
		return 0, 0, err
	}
	return iv.delta - h, iv.delta + h, nil
}

// Relative returns delta as a percentage of the baseline mean. ok is false
// when the baseline mean is zero.
func (iv Interval) Relative() (pct float64, ok bool) {
	bm, _ := iv.base.Mean()
	if bm == 0 {
		return 0, false
	}
	return iv.delta / math.Abs(bm) * 100, true
}

// PValue returns the two-sided Welch t-test p-value for "the means differ".
func (iv Interval) PValue() (float64, error) {
	if err := iv.check(); err != nil {
		return 0, err
	}
	if iv.self || iv.stderr == 0 {
		if iv.delta == 0 {
			return 1, nil
		}
		return 0, nil
	}
	res, err := stats.TwoSampleWelchTTest(metrics.Sample{Stat: iv.base}, metrics.Sample{Stat: iv.cand}, stats.LocationDiffers)
	if err != nil {
		return 0, err
	}
	return res.P, nil
}

// Baseline returns the baseline aggregate the interval was derived from.
func (iv Interval) Baseline() metrics.RunningStat { return iv.base }

// Candidate returns the candidate aggregate the interval was derived from.
func (iv Interval) Candidate() metrics.RunningStat { return iv.cand }

func quantile(p, dof float64) float64 {
	if math.IsInf(dof, 1) || dof > normalDOF {
		return distuv.UnitNormal.Quantile(p)
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}.Quantile(p)
}

// Diff holds the per-metric intervals of one pair.
type Diff struct {
	Pair      pairing.Pair
	Intervals []Interval
}

// Interval returns the interval for metric, if both labels had samples.
func (d Diff) Interval(metric metrics.Metric) (Interval, bool) {
	for _, iv := range d.Intervals {
		if iv.Metric == metric {
			return iv, true
		}
	}
	return Interval{}, false
}

// Compute compares the two labels of p. Metrics missing on either side are
// omitted. A label that was never observed yields a ConfigurationError.
func Compute(m *metrics.Measurements, p pairing.Pair) (Diff, error) {
	var missing []string
	if !m.Has(p.Baseline) {
		missing = append(missing, string(p.Baseline))
	}
	if !m.Has(p.Candidate) && p.Candidate != p.Baseline {
		missing = append(missing, string(p.Candidate))
	}
	if len(missing) > 0 {
		return Diff{}, &pairing.ConfigurationError{Missing: missing}
	}

	d := Diff{Pair: p}
	for i := 0; i < m.NumMetrics(); i++ {
		metric := metrics.Metric(i)
		base, ok := m.Stat(p.Baseline, metric)
		if !ok || base.Count() == 0 {
			continue
		}
		name := m.MetricName(metric)
		if p.Baseline == p.Candidate {
			d.Intervals = append(d.Intervals, selfInterval(metric, name, base))
			continue
		}
		cand, ok := m.Stat(p.Candidate, metric)
		if !ok || cand.Count() == 0 {
			continue
		}
		d.Intervals = append(d.Intervals, Between(metric, name, base, cand))
	}
	return d, nil
}

// ComputeAll computes the diff of every pair, in order.
func ComputeAll(m *metrics.Measurements, pairs []pairing.Pair) ([]Diff, error) {
	diffs := make([]Diff, 0, len(pairs))
	for _, p := range pairs {
		d, err := Compute(m, p)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, d)
	}
	return diffs, nil
}
