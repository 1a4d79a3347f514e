package metrics

import "math"

// RunningStat accumulates count, mean and the sum of squared deviations of
// one (label, metric) series using Welford's online algorithm.
type RunningStat struct {
	n    int
	mean float64
	m2   float64
}

// Add folds x into the running aggregate.
func (s *RunningStat) Add(x float64) {
	s.n++
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	delta2 := x - s.mean
	s.m2 += delta * delta2
}

// Count returns the number of samples seen.
func (s RunningStat) Count() int { return s.n }

// Mean returns the sample mean. ok is false when no sample has been seen.
func (s RunningStat) Mean() (mean float64, ok bool) {
	if s.n < 1 {
		return 0, false
	}
	return s.mean, true
}

// Variance returns the unbiased sample variance m2/(n-1). ok is false
// with fewer than two samples.
func (s RunningStat) Variance() (variance float64, ok bool) {
	if s.n < 2 {
		return 0, false
	}
	return s.m2 / float64(s.n-1), true
}

// StdDev returns the sample standard deviation.
func (s RunningStat) StdDev() (stddev float64, ok bool) {
	v, ok := s.Variance()
	if !ok {
		return 0, false
	}
	return math.Sqrt(v), true
}

// SumSquares returns the sum of squared deviations from the mean.
func (s RunningStat) SumSquares() float64 { return s.m2 }

// Sample adapts a RunningStat to the weight/mean/variance shape used by
// t-test helpers. Undefined moments are reported as zero, so callers must
// check Count before relying on it.
type Sample struct {
	Stat RunningStat
}

func (s Sample) Weight() float64 { return float64(s.Stat.n) }

func (s Sample) Mean() float64 { return s.Stat.mean }

func (s Sample) Variance() float64 {
	v, _ := s.Stat.Variance()
	return v
}
