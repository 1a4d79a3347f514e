package runner

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/benchdiff/internal/output"
	"github.com/torosent/benchdiff/internal/pairing"
	"github.com/torosent/benchdiff/internal/source"
)

// DefaultConfidence is the interval level used when Options.Confidence is unset.
const DefaultConfidence = 0.95

// Options configure the Runner.
type Options struct {
	Source     source.Source    // row source (required)
	Plan       *pairing.Plan    // pairing plan (nil means consecutive first-seen pairing)
	Renderer   *output.Renderer // live frame sink (nil disables live frames)
	Confidence float64          // interval level for frames and target-ci (0 means 0.95)
	TargetCI   float64          // stop once every half-width is within this percent of its baseline mean (0 disables)
	Logger     *slog.Logger     // diagnostics (nil discards)
	Tracer     trace.Tracer     // span sink (nil means no-op)
}

func (o *Options) normalize() {
	if o.Plan == nil {
		o.Plan = pairing.NewPlan("", nil, nil)
	}
	if !(o.Confidence > 0 && o.Confidence < 1) {
		o.Confidence = DefaultConfidence
	}
	if o.TargetCI < 0 {
		o.TargetCI = 0
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("benchdiff")
	}
}
