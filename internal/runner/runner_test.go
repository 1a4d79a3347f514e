package runner_test

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/torosent/benchdiff/internal/clock"
	"github.com/torosent/benchdiff/internal/metrics"
	"github.com/torosent/benchdiff/internal/output"
	"github.com/torosent/benchdiff/internal/pairing"
	"github.com/torosent/benchdiff/internal/runner"
	"github.com/torosent/benchdiff/internal/source"
	"github.com/torosent/benchdiff/internal/threshold"
)

// cannedSource replays fixed rows, optionally advancing a fake clock before
// each one.
type cannedSource struct {
	metrics []string
	rows    []source.Row
	clock   *clock.Fake
	step    time.Duration
	next    int

	// cancelAt, when set, cancels the context once this many rows were read.
	cancelAt int
	cancel   context.CancelFunc
}

func newSource(metrics []string, rows ...string) *cannedSource {
	s := &cannedSource{metrics: metrics}
	for i, r := range rows {
		fields := strings.Split(r, ",")
		s.rows = append(s.rows, source.Row{Line: i + 2, Label: fields[0], Fields: fields[1:]})
	}
	return s
}

func (s *cannedSource) Header(context.Context) ([]string, error) {
	return s.metrics, nil
}

func (s *cannedSource) Next(ctx context.Context) (source.Row, error) {
	if s.cancel != nil && s.next == s.cancelAt {
		s.cancel()
		<-ctx.Done()
		return source.Row{}, ctx.Err()
	}
	if s.next >= len(s.rows) {
		return source.Row{}, io.EOF
	}
	if s.clock != nil {
		s.clock.Advance(s.step)
	}
	row := s.rows[s.next]
	s.next++
	return row, nil
}

type recordingTerminal struct {
	clears []int
	frames []string
}

func (r *recordingTerminal) WriteFrame(frame []byte) error {
	r.frames = append(r.frames, string(frame))
	return nil
}

func (r *recordingTerminal) ClearLines(n int) error {
	r.clears = append(r.clears, n)
	return nil
}

func scenario1() *cannedSource {
	return newSource([]string{"ns/op"},
		"run1,1.0", "run1,2.0", "run1,3.0",
		"run2,10.0", "run2,20.0", "run2,30.0",
	)
}

func TestRunScenario1DefaultPairing(t *testing.T) {
	res, err := runner.New(runner.Options{Source: scenario1()}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Rows != 6 || res.Stop != runner.StopEOF {
		t.Errorf("Rows = %d, Stop = %s", res.Rows, res.Stop)
	}
	if diff := cmp.Diff([]pairing.Pair{{Baseline: "run1", Candidate: "run2"}}, res.Pairs); diff != "" {
		t.Fatalf("pairs mismatch (-want +got):\n%s", diff)
	}

	base, _ := res.Measurements.Stat("run1", 0)
	cand, _ := res.Measurements.Stat("run2", 0)
	if mean, _ := base.Mean(); mean != 2 {
		t.Errorf("baseline mean = %v, want 2", mean)
	}
	if v, _ := base.Variance(); v != 1 {
		t.Errorf("baseline variance = %v, want 1", v)
	}
	if mean, _ := cand.Mean(); mean != 20 {
		t.Errorf("candidate mean = %v, want 20", mean)
	}
	if v, _ := cand.Variance(); v != 100 {
		t.Errorf("candidate variance = %v, want 100", v)
	}
	if got := res.Diffs[0].Intervals[0].Delta(); got != 18 {
		t.Errorf("delta = %v, want 18", got)
	}
	if err := threshold.Gate(res.Diffs, 0.95); err != nil {
		t.Errorf("Gate() = %v, want pass for noisy scenario", err)
	}
}

func TestRunScenario2ExplicitBaseline(t *testing.T) {
	src := newSource([]string{"ns/op"},
		"run3,5", "run2,4", "run1,1", "run2,6", "run1,2", "run3,7",
	)
	plan := pairing.NewPlan("run1", []string{"run2", "run3"}, nil)
	res, err := runner.New(runner.Options{Source: src, Plan: plan}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []pairing.Pair{
		{Baseline: "run1", Candidate: "run2"},
		{Baseline: "run1", Candidate: "run3"},
	}
	if diff := cmp.Diff(want, res.Pairs); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
	if len(res.Diffs) != 2 {
		t.Fatalf("diffs = %d, want 2", len(res.Diffs))
	}
}

func TestRunScenario3GateFails(t *testing.T) {
	src := newSource([]string{"ns/op", "B/op"},
		"run1,1,64", "run1,2,64", "run1,3,64",
		"run2,101,64", "run2,102,64", "run2,103,64",
	)
	res, err := runner.New(runner.Options{Source: src}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	err = threshold.Gate(res.Diffs, 0.95)
	if !errors.Is(err, threshold.ErrRegression) {
		t.Fatalf("Gate() = %v, want regression", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "run1..run2") || !strings.Contains(msg, "ns/op") || !strings.Contains(msg, "+100") {
		t.Errorf("message %q should name pair, metric and magnitude", msg)
	}
	if strings.Contains(msg, "B/op") {
		t.Errorf("unchanged metric reported: %q", msg)
	}
}

func TestRunScenario4MissingLabel(t *testing.T) {
	term := &recordingTerminal{}
	r := runner.New(runner.Options{
		Source:   scenario1(),
		Plan:     pairing.NewPlan("", []string{"run1", "run2", "nightly"}, nil),
		Renderer: output.NewRenderer(term, time.Hour, clock.NewFake(time.Unix(0, 0))),
	})
	res, err := r.Run(context.Background())

	var cfgErr *pairing.ConfigurationError
	if !errors.As(err, &cfgErr) || !errors.Is(err, pairing.ErrConfiguration) {
		t.Fatalf("Run() error = %v, want ConfigurationError", err)
	}
	if diff := cmp.Diff([]string{"nightly"}, cfgErr.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if res.Diffs != nil || res.Pairs != nil {
		t.Errorf("no final diff should be computed, got %+v", res.Diffs)
	}
	if diff := cmp.Diff([]string{"nightly"}, res.Pending); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
	if len(term.frames) != 0 {
		t.Errorf("no frame should be rendered, got %d", len(term.frames))
	}
}

func TestRunThrottlesFrames(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	src := scenario1()
	src.rows = append(src.rows, src.rows...)
	src.clock = clk
	src.step = 40 * time.Millisecond

	term := &recordingTerminal{}
	r := runner.New(runner.Options{
		Source:   src,
		Renderer: output.NewRenderer(term, 100*time.Millisecond, clk),
	})
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Rows arrive every 40ms: redraws at 120ms, 240ms, 360ms and 480ms,
	// plus the unconditional final frame.
	if len(term.frames) != 5 || res.Frames != 5 {
		t.Fatalf("frames = %d (result %d), want 5", len(term.frames), res.Frames)
	}
	if term.clears[0] != 0 {
		t.Errorf("first clear = %d, want 0", term.clears[0])
	}
	for i := 1; i < len(term.frames); i++ {
		if want := strings.Count(term.frames[i-1], "\n"); term.clears[i] != want {
			t.Errorf("clear %d = %d, want %d", i, term.clears[i], want)
		}
	}
	if !strings.HasPrefix(term.frames[0], "3 rows, 1 labels") {
		t.Errorf("first frame should show 3 rows:\n%s", term.frames[0])
	}
	if !strings.Contains(term.frames[0], "no pairs to compare yet") {
		t.Errorf("first frame should have no pairs:\n%s", term.frames[0])
	}
	last := term.frames[4]
	if !strings.HasPrefix(last, "12 rows, 2 labels") || !strings.Contains(last, "run1..run2") {
		t.Errorf("final frame:\n%s", last)
	}
}

func TestRunRendersPendingLabels(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	src := scenario1()
	src.clock = clk
	src.step = time.Second

	term := &recordingTerminal{}
	r := runner.New(runner.Options{
		Source:   src,
		Plan:     pairing.NewPlan("run1", []string{"run2"}, nil),
		Renderer: output.NewRenderer(term, 100*time.Millisecond, clk),
	})
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(term.frames) != 7 {
		t.Fatalf("frames = %d, want one per row plus final", len(term.frames))
	}
	if !strings.Contains(term.frames[0], "waiting for: run2") {
		t.Errorf("frame before run2 should list it as pending:\n%s", term.frames[0])
	}
	if strings.Contains(term.frames[6], "waiting for") {
		t.Errorf("final frame should have nothing pending:\n%s", term.frames[6])
	}
}

func TestRunCancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := scenario1()
	src.cancelAt = 5
	src.cancel = cancel

	term := &recordingTerminal{}
	r := runner.New(runner.Options{
		Source:   src,
		Renderer: output.NewRenderer(term, time.Hour, clock.NewFake(time.Unix(0, 0))),
	})
	res, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stop != runner.StopCancelled || res.Rows != 5 {
		t.Errorf("Stop = %s, Rows = %d", res.Stop, res.Rows)
	}
	if len(res.Diffs) != 1 {
		t.Fatalf("diffs = %d, want 1", len(res.Diffs))
	}
	cand := res.Diffs[0].Intervals[0].Candidate()
	if cand.Count() != 2 {
		t.Errorf("candidate samples = %d, want 2", cand.Count())
	}
	if len(term.frames) != 1 {
		t.Errorf("final frame should be rendered once, got %d", len(term.frames))
	}
}

func TestRunInputErrorAborts(t *testing.T) {
	src := newSource([]string{"ns/op"}, "run1,1", "run1,fast", "run1,3")
	res, err := runner.New(runner.Options{Source: src}).Run(context.Background())
	if !errors.Is(err, metrics.ErrInput) {
		t.Fatalf("Run() error = %v, want input error", err)
	}
	var parseErr *metrics.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("error %T should be a ParseError", err)
	}
	if !strings.Contains(err.Error(), "3") {
		t.Errorf("error %q should name the line", err)
	}
	if res.Rows != 1 {
		t.Errorf("Rows = %d, want 1", res.Rows)
	}
}

type headerErrorSource struct{}

func (headerErrorSource) Header(context.Context) ([]string, error) {
	return nil, &metrics.ShapeError{Line: 1, Want: 1, Got: 0}
}

func (headerErrorSource) Next(context.Context) (source.Row, error) { return source.Row{}, io.EOF }

func TestRunHeaderError(t *testing.T) {
	_, err := runner.New(runner.Options{Source: headerErrorSource{}}).Run(context.Background())
	if !errors.Is(err, metrics.ErrInput) {
		t.Errorf("Run() error = %v, want input error", err)
	}
}

func TestRunStopsAtTargetCI(t *testing.T) {
	var rows []string
	for i := 0; i < 50; i++ {
		jitter := []string{"0", "1", "-1"}[i%3]
		rows = append(rows, "a,"+addTo(100, jitter), "b,"+addTo(200, jitter))
	}
	src := newSource([]string{"ns/op"}, rows...)
	res, err := runner.New(runner.Options{Source: src, TargetCI: 5}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stop != runner.StopConverged {
		t.Fatalf("Stop = %s, want converged", res.Stop)
	}
	if res.Rows != 4 {
		t.Errorf("Rows = %d, want 4 (two samples per label)", res.Rows)
	}
	if len(res.Diffs) != 1 || !res.Diffs[0].Intervals[0].Sufficient() {
		t.Errorf("diffs = %+v", res.Diffs)
	}
}

func addTo(base int, jitter string) string {
	j, _ := strconv.Atoi(jitter)
	return strconv.Itoa(base + j)
}

func TestRunEmitsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := runner.New(runner.Options{
		Source:   scenario1(),
		Renderer: output.NewRenderer(&recordingTerminal{}, time.Hour, clock.NewFake(time.Unix(0, 0))),
		Tracer:   tp.Tracer("test"),
	})
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"benchdiff render", "benchdiff run"}, names); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}
