package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys recorded on benchdiff spans.
const (
	AttrInput   = attribute.Key("benchdiff.input")
	AttrRows    = attribute.Key("benchdiff.rows")
	AttrLabels  = attribute.Key("benchdiff.labels")
	AttrPairs   = attribute.Key("benchdiff.pairs")
	AttrFrames  = attribute.Key("benchdiff.frames")
	AttrPending = attribute.Key("benchdiff.pending")
	AttrFinal   = attribute.Key("benchdiff.final")
)

// StartRunSpan starts the root span covering one sample stream.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, input string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "benchdiff run",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	if input != "" {
		span.SetAttributes(AttrInput.String(input))
	}
	return ctx, span
}

// StartStageSpan starts a child span for one stage of a run, such as a
// frame render or the final diff.
func StartStageSpan(ctx context.Context, tracer trace.Tracer, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "benchdiff "+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
