package output

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/torosent/benchdiff/internal/diff"
	"github.com/torosent/benchdiff/internal/metrics"
)

// FrameData is the snapshot one frame is drawn from.
type FrameData struct {
	Measurements *metrics.Measurements
	Diffs        []diff.Diff
	Pending      []string
	Confidence   float64
	Rows         int
}

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// FormatFrame renders data as plain text. Every line, including the last,
// ends with a newline.
func FormatFrame(data FrameData) []byte {
	var b strings.Builder
	m := data.Measurements
	if m == nil || len(m.Benches()) == 0 {
		b.WriteString("waiting for samples...\n")
		writePending(&b, data.Pending)
		return []byte(b.String())
	}

	benches := m.Benches()
	fmt.Fprintf(&b, "%d rows, %d labels\n", data.Rows, len(benches))
	b.WriteString(summaryTable(m))
	b.WriteString("\n")

	if len(data.Diffs) == 0 {
		b.WriteString("no pairs to compare yet\n")
	} else {
		fmt.Fprintf(&b, "delta at %s confidence\n", formatLevel(data.Confidence))
		b.WriteString(diffTable(m.Metrics(), data.Diffs, data.Confidence))
		b.WriteString("\n")
	}
	writePending(&b, data.Pending)
	return []byte(b.String())
}

func newTable(headers []string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers(headers...)
}

func summaryTable(m *metrics.Measurements) string {
	headers := append([]string{"label", "n"}, m.Metrics()...)
	t := newTable(headers)
	for _, bench := range m.Benches() {
		first, _ := m.Stat(bench, 0)
		row := []string{string(bench), strconv.Itoa(first.Count())}
		for i := 0; i < m.NumMetrics(); i++ {
			s, _ := m.Stat(bench, metrics.Metric(i))
			row = append(row, formatStat(s))
		}
		t.Row(row...)
	}
	return t.Render()
}

func diffTable(names []string, diffs []diff.Diff, level float64) string {
	headers := append([]string{"pair"}, names...)
	t := newTable(headers)
	for _, d := range diffs {
		row := []string{d.Pair.String()}
		for i := range names {
			iv, ok := d.Interval(metrics.Metric(i))
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, FormatInterval(iv, level))
		}
		t.Row(row...)
	}
	return t.Render()
}

func writePending(b *strings.Builder, pending []string) {
	if len(pending) == 0 {
		return
	}
	fmt.Fprintf(b, "waiting for: %s\n", strings.Join(pending, ", "))
}

func formatStat(s metrics.RunningStat) string {
	mean, ok := s.Mean()
	if !ok {
		return "-"
	}
	sd, ok := s.StdDev()
	if !ok {
		return formatNumber(mean)
	}
	return formatNumber(mean) + " ± " + formatNumber(sd)
}

// FormatInterval renders one diff cell: "delta ± halfwidth (rel%)", or
// "delta (insufficient data)" when either side has fewer than two samples.
func FormatInterval(iv diff.Interval, level float64) string {
	delta := formatSigned(iv.Delta())
	h, err := iv.HalfWidth(level)
	if errors.Is(err, diff.ErrOutOfRange) {
		return delta + " (out of range)"
	}
	if err != nil {
		return delta + " (insufficient data)"
	}
	cell := delta + " ± " + formatNumber(h)
	if pct, ok := iv.Relative(); ok {
		rel := strconv.FormatFloat(pct, 'f', 1, 64)
		if pct > 0 {
			rel = "+" + rel
		}
		cell += " (" + rel + "%)"
	}
	return cell
}

func formatLevel(level float64) string {
	return strconv.FormatFloat(level*100, 'g', 10, 64) + "%"
}

func formatSigned(v float64) string {
	if v > 0 {
		return "+" + formatNumber(v)
	}
	return formatNumber(v)
}

func formatNumber(v float64) string {
	a := math.Abs(v)
	switch {
	case math.IsInf(v, 0):
		return "inf"
	case a == 0:
		return "0"
	case a >= 1e6 || a < 1e-3:
		return strconv.FormatFloat(v, 'e', 3, 64)
	case a >= 100:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 3, 64)
	}
}
