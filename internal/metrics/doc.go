// Package metrics maintains streaming per-label, per-metric statistics for
// benchmark samples.
//
// Every input row carries one value per metric declared by the header. The
// [Measurements] accumulator folds each row into a [RunningStat] per
// (label, metric) using Welford's one-pass update, which stays numerically
// stable over long streams and large magnitudes where a sum/sum-of-squares
// approach loses precision to cancellation.
//
//	m := metrics.NewMeasurements([]string{"ns/op", "B/op"})
//	samples, err := m.ParseSamples(line, "run1", fields)
//	if err != nil {
//		return err // *ShapeError or *ParseError, both match ErrInput
//	}
//	if err := m.Update("run1", samples); err != nil {
//		return err
//	}
//	stat, _ := m.Stat("run1", 0)
//	mean, _ := stat.Mean()
//
// # Ownership
//
// A Measurements value grows monotonically: labels are created lazily on
// their first row and never removed. It has no internal locking; the
// pipeline driver is the only goroutine that touches it.
package metrics
