package output_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hinshun/vt10x"

	"github.com/torosent/benchdiff/internal/clock"
	"github.com/torosent/benchdiff/internal/diff"
	"github.com/torosent/benchdiff/internal/metrics"
	"github.com/torosent/benchdiff/internal/output"
	"github.com/torosent/benchdiff/internal/pairing"
)

func scenarioData(t *testing.T) output.FrameData {
	t.Helper()
	m := metrics.NewMeasurements([]string{"ns/op", "B/op"})
	rows := []struct {
		label string
		v     []float64
	}{
		{"run1", []float64{1, 64}},
		{"run1", []float64{2, 64}},
		{"run1", []float64{3, 64}},
		{"run2", []float64{10, 128}},
		{"run2", []float64{20, 128}},
		{"run2", []float64{30, 128}},
		{"run3", []float64{5, 0}},
	}
	for _, r := range rows {
		if err := m.Update(metrics.Bench(r.label), r.v); err != nil {
			t.Fatal(err)
		}
	}
	diffs, err := diff.ComputeAll(m, []pairing.Pair{
		{Baseline: "run1", Candidate: "run2"},
		{Baseline: "run2", Candidate: "run3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return output.FrameData{
		Measurements: m,
		Diffs:        diffs,
		Pending:      []string{"run4"},
		Confidence:   0.95,
		Rows:         len(rows),
	}
}

func TestFormatFrame(t *testing.T) {
	data := scenarioData(t)
	frame := string(output.FormatFrame(data))

	for _, want := range []string{
		"7 rows, 3 labels",
		"delta at 95% confidence",
		"run1..run2",
		"run2..run3",
		"2.000 ± 1.000",
		"+18.000 ± ",
		"(+900.0%)",
		"(+100.0%)",
		"-15.000 (insufficient data)",
		"waiting for: run4",
	} {
		if !strings.Contains(frame, want) {
			t.Errorf("frame missing %q:\n%s", want, frame)
		}
	}
	if !strings.HasSuffix(frame, "\n") {
		t.Errorf("frame should end with a newline")
	}
	if again := string(output.FormatFrame(data)); again != frame {
		t.Errorf("FormatFrame is not deterministic")
	}
}

func TestFormatFrameWaiting(t *testing.T) {
	got := string(output.FormatFrame(output.FrameData{Pending: []string{"a", "b"}}))
	want := "waiting for samples...\nwaiting for: a, b\n"
	if got != want {
		t.Errorf("FormatFrame() = %q, want %q", got, want)
	}

	m := metrics.NewMeasurements([]string{"x"})
	if err := m.Update("only", []float64{1}); err != nil {
		t.Fatal(err)
	}
	got = string(output.FormatFrame(output.FrameData{Measurements: m, Rows: 1, Confidence: 0.95}))
	if !strings.Contains(got, "no pairs to compare yet") {
		t.Errorf("single-label frame = %q", got)
	}
}

func TestFormatInterval(t *testing.T) {
	var zero metrics.RunningStat
	zero.Add(0)
	zero.Add(0)
	var pos metrics.RunningStat
	pos.Add(2)
	pos.Add(4)

	iv := diff.Between(0, "x", zero, pos)
	got := output.FormatInterval(iv, 0.95)
	if !strings.HasPrefix(got, "+3.000 ± ") || strings.Contains(got, "%") {
		t.Errorf("FormatInterval() = %q, want no relative part for zero baseline", got)
	}

	m := metrics.NewMeasurements([]string{"x"})
	_ = m.Update("a", []float64{1})
	_ = m.Update("a", []float64{3})
	d, err := diff.Compute(m, pairing.Pair{Baseline: "a", Candidate: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if got := output.FormatInterval(d.Intervals[0], 0.95); got != "0 ± 0 (0.0%)" {
		t.Errorf("self interval = %q", got)
	}

	var huge, huger metrics.RunningStat
	huge.Add(1e160)
	huge.Add(3e160)
	huger.Add(2e160)
	huger.Add(5e160)
	got = output.FormatInterval(diff.Between(0, "x", huge, huger), 0.95)
	if !strings.HasSuffix(got, " (out of range)") || strings.Contains(got, "NaN") {
		t.Errorf("out-of-range interval = %q", got)
	}
}

func TestFormattedFramesReplaceEachOther(t *testing.T) {
	vt := vt10x.New(vt10x.WithSize(160, 40))
	r := output.NewRenderer(output.NewWriterTerminal(onlcr{vt}), time.Millisecond, clock.NewFake(time.Unix(0, 0)))

	full := scenarioData(t)
	frames := []output.FrameData{
		full,
		{Pending: []string{"run1"}},
		full,
	}
	for i, data := range frames {
		frame := output.FormatFrame(data)
		if err := r.Render(frame); err != nil {
			t.Fatal(err)
		}
		want := strings.Split(strings.TrimSuffix(string(frame), "\n"), "\n")
		for j := range want {
			want[j] = strings.TrimRight(want[j], " ")
		}
		if diff := cmp.Diff(want, screenLines(vt)); diff != "" {
			t.Errorf("frame %d: screen mismatch (-want +got):\n%s", i, diff)
		}
	}
}
