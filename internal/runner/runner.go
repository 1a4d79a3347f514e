package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/torosent/benchdiff/internal/diff"
	"github.com/torosent/benchdiff/internal/metrics"
	"github.com/torosent/benchdiff/internal/output"
	"github.com/torosent/benchdiff/internal/pairing"
	"github.com/torosent/benchdiff/internal/tracing"
)

// StopReason records why reading ended.
type StopReason string

const (
	StopEOF       StopReason = "eof"
	StopCancelled StopReason = "cancelled"
	StopConverged StopReason = "converged"
)

// Result captures the final state of a session.
type Result struct {
	Measurements *metrics.Measurements
	Pairs        []pairing.Pair
	Diffs        []diff.Diff
	Pending      []string
	Rows         int
	Frames       int
	Stop         StopReason
	Duration     time.Duration
}

// FrameData returns the final frame contents for report printers.
func (r Result) FrameData(confidence float64) output.FrameData {
	return output.FrameData{
		Measurements: r.Measurements,
		Diffs:        r.Diffs,
		Pending:      r.Pending,
		Confidence:   confidence,
		Rows:         r.Rows,
	}
}

// Runner folds a row stream into running statistics and keeps the live
// frame current.
type Runner struct {
	opt  Options
	m    *metrics.Measurements
	rows int
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run reads the source until EOF, cancellation or convergence. Partial
// results are returned alongside any error.
func (r *Runner) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	ctx, span := tracing.StartRunSpan(ctx, r.opt.Tracer, "")
	defer func() {
		res.Duration = time.Since(start)
		tracing.EndSpan(span, err,
			tracing.AttrRows.Int(res.Rows),
			tracing.AttrPairs.Int(len(res.Pairs)),
			tracing.AttrFrames.Int(res.Frames),
		)
	}()

	names, err := r.opt.Source.Header(ctx)
	if err != nil {
		return res, err
	}
	r.m = metrics.NewMeasurements(names)
	res.Measurements = r.m
	r.opt.Logger.Debug("reading samples", slog.Any("metrics", names))

	res.Stop, err = r.consume(ctx)
	res.Rows = r.rows
	res.Frames = r.frames()
	if err != nil {
		return res, err
	}
	if res.Stop == StopCancelled {
		r.opt.Logger.Info("input interrupted, finishing with samples read so far", slog.Int("rows", r.rows))
	}

	pairs, err := r.opt.Plan.Final(r.m)
	if err != nil {
		_, res.Pending = r.opt.Plan.Resolve(r.m)
		return res, err
	}
	res.Pairs = pairs

	res.Diffs, err = diff.ComputeAll(r.m, pairs)
	if err != nil {
		return res, err
	}

	if r.opt.Renderer != nil {
		if err := r.render(ctx, res.Diffs, nil, true); err != nil {
			return res, err
		}
		res.Frames = r.frames()
	}

	r.opt.Logger.Info("session complete",
		slog.Int("rows", r.rows),
		slog.Int("labels", len(r.m.Benches())),
		slog.Int("pairs", len(pairs)),
		slog.Int("frames", res.Frames),
		slog.String("stop", string(res.Stop)),
	)
	return res, nil
}

func (r *Runner) consume(ctx context.Context) (StopReason, error) {
	for {
		row, err := r.opt.Source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return StopEOF, nil
			case ctx.Err() != nil && errors.Is(err, ctx.Err()):
				return StopCancelled, nil
			default:
				return "", err
			}
		}

		values, err := r.m.ParseSamples(row.Line, row.Label, row.Fields)
		if err != nil {
			return "", err
		}
		label := metrics.Bench(row.Label)
		if !r.m.Has(label) {
			r.opt.Logger.Debug("new label", slog.String("label", row.Label), slog.Int("line", row.Line))
		}
		if err := r.m.Update(label, values); err != nil {
			return "", err
		}
		r.rows++

		if r.opt.Renderer != nil && r.opt.Renderer.Due() {
			pairs, pending := r.opt.Plan.Resolve(r.m)
			diffs, err := diff.ComputeAll(r.m, pairs)
			if err != nil {
				return "", err
			}
			if err := r.render(ctx, diffs, pending, false); err != nil {
				return "", err
			}
		}

		if r.opt.TargetCI > 0 && r.converged() {
			r.opt.Logger.Info("target interval width reached", slog.Float64("target_ci_pct", r.opt.TargetCI), slog.Int("rows", r.rows))
			return StopConverged, nil
		}
	}
}

func (r *Runner) render(ctx context.Context, diffs []diff.Diff, pending []string, final bool) error {
	_, span := tracing.StartStageSpan(ctx, r.opt.Tracer, "render")
	frame := output.FormatFrame(output.FrameData{
		Measurements: r.m,
		Diffs:        diffs,
		Pending:      pending,
		Confidence:   r.opt.Confidence,
		Rows:         r.rows,
	})
	err := r.opt.Renderer.Render(frame)
	tracing.EndSpan(span, err,
		tracing.AttrPairs.Int(len(diffs)),
		tracing.AttrPending.Int(len(pending)),
		tracing.AttrFinal.Bool(final),
	)
	return err
}

func (r *Runner) frames() int {
	if r.opt.Renderer == nil {
		return 0
	}
	return r.opt.Renderer.Frames()
}

// converged reports whether every requested label has arrived and every
// interval's half-width is below TargetCI percent of its baseline mean.
func (r *Runner) converged() bool {
	pairs, pending := r.opt.Plan.Resolve(r.m)
	if len(pending) > 0 || len(pairs) == 0 {
		return false
	}
	for _, p := range pairs {
		d, err := diff.Compute(r.m, p)
		if err != nil || len(d.Intervals) == 0 {
			return false
		}
		for _, iv := range d.Intervals {
			h, err := iv.HalfWidth(r.opt.Confidence)
			if err != nil {
				return false
			}
			base, ok := iv.Baseline().Mean()
			if !ok || base == 0 {
				return false
			}
			if h/math.Abs(base)*100 >= r.opt.TargetCI {
				return false
			}
		}
	}
	return true
}
