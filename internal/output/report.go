package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/torosent/benchdiff/internal/diff"
	"github.com/torosent/benchdiff/internal/metrics"
	"github.com/torosent/benchdiff/internal/threshold"
)

// Report is the machine-readable summary of a finished run.
type Report struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Confidence  float64           `json:"confidence" yaml:"confidence"`
	Rows        int               `json:"rows" yaml:"rows"`
	Metrics     []string          `json:"metrics" yaml:"metrics"`
	Labels      []LabelReport     `json:"labels" yaml:"labels"`
	Pairs       []PairReport      `json:"pairs" yaml:"pairs"`
	Thresholds  []ThresholdReport `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// LabelReport summarises the samples of one label.
type LabelReport struct {
	Label   string       `json:"label" yaml:"label"`
	Count   int          `json:"count" yaml:"count"`
	Metrics []StatReport `json:"metrics" yaml:"metrics"`
}

// StatReport is the running statistics of one (label, metric).
type StatReport struct {
	Metric string   `json:"metric" yaml:"metric"`
	Mean   *float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev *float64 `json:"stddev,omitempty" yaml:"stddev,omitempty"`
}

// PairReport holds the intervals of one compared pair.
type PairReport struct {
	Baseline  string           `json:"baseline" yaml:"baseline"`
	Candidate string           `json:"candidate" yaml:"candidate"`
	Metrics   []IntervalReport `json:"metrics" yaml:"metrics"`
}

// IntervalReport describes one metric of a pair. Fields that need two
// samples per side are omitted when Sufficient is false or the interval is
// OutOfRange.
type IntervalReport struct {
	Metric      string   `json:"metric" yaml:"metric"`
	Delta       float64  `json:"delta" yaml:"delta"`
	RelativePct *float64 `json:"relative_pct,omitempty" yaml:"relative_pct,omitempty"`
	Sufficient  bool     `json:"sufficient" yaml:"sufficient"`
	OutOfRange  bool     `json:"out_of_range,omitempty" yaml:"out_of_range,omitempty"`
	HalfWidth   *float64 `json:"half_width,omitempty" yaml:"half_width,omitempty"`
	Lower       *float64 `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper       *float64 `json:"upper,omitempty" yaml:"upper,omitempty"`
	StdErr      *float64 `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	DOF         *float64 `json:"dof,omitempty" yaml:"dof,omitempty"`
	PValue      *float64 `json:"p_value,omitempty" yaml:"p_value,omitempty"`
}

// ThresholdReport is the outcome of one threshold on one pair.
type ThresholdReport struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Pair      string  `json:"pair,omitempty" yaml:"pair,omitempty"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
	Message   string  `json:"message" yaml:"message"`
}

// NewReport builds a report from the final frame and threshold results.
// Each report carries a fresh ULID run id.
func NewReport(data FrameData, results []threshold.Result) Report {
	report := Report{
		RunID:       ulid.Make().String(),
		GeneratedAt: time.Now().UTC(),
		Confidence:  data.Confidence,
		Rows:        data.Rows,
		Labels:      []LabelReport{},
		Pairs:       []PairReport{},
	}
	if m := data.Measurements; m != nil {
		report.Metrics = m.Metrics()
		for _, bench := range m.Benches() {
			report.Labels = append(report.Labels, labelReport(m, bench))
		}
	}
	for _, d := range data.Diffs {
		pr := PairReport{
			Baseline:  string(d.Pair.Baseline),
			Candidate: string(d.Pair.Candidate),
			Metrics:   make([]IntervalReport, 0, len(d.Intervals)),
		}
		for _, iv := range d.Intervals {
			pr.Metrics = append(pr.Metrics, intervalReport(iv, data.Confidence))
		}
		report.Pairs = append(report.Pairs, pr)
	}
	for _, r := range results {
		tr := ThresholdReport{
			Threshold: r.Threshold.Raw,
			Actual:    r.Actual,
			Pass:      r.Pass,
			Message:   r.Message,
		}
		if r.Pair.Baseline != "" {
			tr.Pair = r.Pair.String()
		}
		report.Thresholds = append(report.Thresholds, tr)
	}
	return report
}

func labelReport(m *metrics.Measurements, bench metrics.Bench) LabelReport {
	lr := LabelReport{Label: string(bench)}
	for i, name := range m.Metrics() {
		s, _ := m.Stat(bench, metrics.Metric(i))
		lr.Count = s.Count()
		sr := StatReport{Metric: name}
		if mean, ok := s.Mean(); ok {
			sr.Mean = finite(mean)
		}
		if sd, ok := s.StdDev(); ok {
			sr.StdDev = finite(sd)
		}
		lr.Metrics = append(lr.Metrics, sr)
	}
	return lr
}

func intervalReport(iv diff.Interval, level float64) IntervalReport {
	ir := IntervalReport{
		Metric:     iv.Name,
		Delta:      iv.Delta(),
		Sufficient: iv.Sufficient(),
	}
	if pct, ok := iv.Relative(); ok {
		ir.RelativePct = finite(pct)
	}
	if !iv.Sufficient() {
		return ir
	}
	h, err := iv.HalfWidth(level)
	if errors.Is(err, diff.ErrOutOfRange) {
		ir.OutOfRange = true
		return ir
	}
	if err == nil {
		ir.HalfWidth = finite(h)
		ir.Lower = finite(iv.Delta() - h)
		ir.Upper = finite(iv.Delta() + h)
	}
	if se, err := iv.StdErr(); err == nil {
		ir.StdErr = finite(se)
	}
	if dof, err := iv.DOF(); err == nil {
		ir.DOF = finite(dof)
	}
	if p, err := iv.PValue(); err == nil {
		ir.PValue = finite(p)
	}
	return ir
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode YAML report: %w", err)
	}
	return enc.Close()
}
