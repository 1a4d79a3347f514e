package output

import (
	"bytes"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/benchdiff/internal/clock"
)

// Renderer redraws a frame in place, at most once per refresh interval.
// It is driven by a single goroutine.
type Renderer struct {
	term    Terminal
	clock   clock.Clock
	limiter *rate.Limiter
	lines   int
	frames  int
}

// NewRenderer creates a renderer drawing to term. The first redraw becomes
// due one interval after construction.
func NewRenderer(term Terminal, interval time.Duration, clk clock.Clock) *Renderer {
	if clk == nil {
		clk = clock.Real()
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.AllowN(clk.Now(), 1)
	return &Renderer{
		term:    term,
		clock:   clk,
		limiter: limiter,
	}
}

// Due reports whether a refresh interval has passed since the last time it
// returned true, consuming the slot if so.
func (r *Renderer) Due() bool {
	return r.limiter.AllowN(r.clock.Now(), 1)
}

// Render erases the previous frame and writes frame in its place. Exactly
// as many lines are cleared as the previous frame contained newlines.
func (r *Renderer) Render(frame []byte) error {
	if err := r.term.ClearLines(r.lines); err != nil {
		return err
	}
	if err := r.term.WriteFrame(frame); err != nil {
		return err
	}
	r.lines = bytes.Count(frame, []byte{'\n'})
	r.frames++
	return nil
}

// Lines returns the newline count of the last rendered frame.
func (r *Renderer) Lines() int { return r.lines }

// Frames returns how many frames have been rendered.
func (r *Renderer) Frames() int { return r.frames }
