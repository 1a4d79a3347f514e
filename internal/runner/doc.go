// Package runner drives one benchdiff session from a row source to final
// diffs.
//
// A [Runner] owns the session's [metrics.Measurements]. It reads the header,
// then folds every row into the accumulator. Whenever the renderer's
// throttle allows, it resolves the current pairs, computes their diffs and
// redraws the live frame. At end of input, on cancellation, or once the
// target interval width is reached, it resolves the final pairs, computes
// the final diffs and renders one last frame unconditionally.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Source:   src,
//		Plan:     pairing.NewPlan("main", []string{"feature"}, nil),
//		Renderer: output.NewRenderer(term, 100*time.Millisecond, nil),
//	})
//	res, err := r.Run(ctx)
//
// # Errors
//
// Malformed rows abort the session with an error matching
// [metrics.ErrInput]. A requested label that never appeared yields a
// [pairing.ConfigurationError] before any final diff is computed. Terminal
// write failures match [output.ErrTerminal]. The regression gate is not
// applied here; callers pass [Result.Diffs] to [threshold.Gate].
package runner
