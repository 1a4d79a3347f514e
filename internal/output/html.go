package output

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// htmlReportData contains all data needed for the HTML report template.
type htmlReportData struct {
	Report           Report
	GeneratedAt      string
	ConfidenceLabel  string
	ThresholdSummary *thresholdSummary
}

type thresholdSummary struct {
	Total  int
	Passed int
	Failed int
}

// PrintHTMLReport generates a standalone HTML page for report.
func PrintHTMLReport(w io.Writer, report Report) error {
	var summary *thresholdSummary
	if len(report.Thresholds) > 0 {
		summary = &thresholdSummary{Total: len(report.Thresholds)}
		for _, tr := range report.Thresholds {
			if tr.Pass {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
	}

	data := htmlReportData{
		Report:           report,
		GeneratedAt:      report.GeneratedAt.Format(time.RFC3339),
		ConfidenceLabel:  formatLevel(report.Confidence),
		ThresholdSummary: summary,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return formatNumber(f)
		},
		"formatSigned": formatSigned,
		"formatOptional": func(f *float64) string {
			if f == nil {
				return "-"
			}
			return formatNumber(*f)
		},
		"formatPercent": func(f *float64) string {
			if f == nil {
				return "-"
			}
			return fmt.Sprintf("%+.1f%%", *f)
		},
		"regressed": func(ir IntervalReport) bool {
			return ir.HalfWidth != nil && ir.Delta > *ir.HalfWidth
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Benchmark Diff Report</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        table {
            width: 100%;
            border-collapse: collapse;
        }
        th, td {
            padding: 10px 12px;
            text-align: left;
            border-bottom: 1px solid #e5e7eb;
            font-variant-numeric: tabular-nums;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
        }
        .pass { color: #10b981; font-weight: 600; }
        .fail { color: #ef4444; font-weight: 600; }
        .muted { color: #6c757d; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Benchmark Diff Report</h1>
            <div class="meta">Run {{.Report.RunID}} | Generated: {{.GeneratedAt}}</div>
            <div class="meta">{{.Report.Rows}} rows | {{len .Report.Labels}} labels | {{.ConfidenceLabel}} confidence</div>
        </header>
        <div class="content">
            <div class="section">
                <h2>Samples</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Label</th>
                            <th>n</th>
                            {{range .Report.Metrics}}<th>{{.}}</th>{{end}}
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Report.Labels}}
                        <tr>
                            <td><strong>{{.Label}}</strong></td>
                            <td>{{.Count}}</td>
                            {{range .Metrics}}<td>{{formatOptional .Mean}}{{if .StdDev}} ± {{formatOptional .StdDev}}{{end}}</td>{{end}}
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>

            {{if .Report.Pairs}}
            <div class="section">
                <h2>Differences</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Pair</th>
                            <th>Metric</th>
                            <th>Delta</th>
                            <th>Relative</th>
                            <th>Half-width</th>
                            <th>p-value</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range $pair := .Report.Pairs}}
                        {{range .Metrics}}
                        <tr>
                            <td>{{$pair.Baseline}}..{{$pair.Candidate}}</td>
                            <td>{{.Metric}}</td>
                            <td{{if regressed .}} class="fail"{{end}}>{{formatSigned .Delta}}</td>
                            <td>{{formatPercent .RelativePct}}</td>
                            <td>{{if .OutOfRange}}<span class="muted">out of range</span>{{else if .Sufficient}}{{formatOptional .HalfWidth}}{{else}}<span class="muted">insufficient data</span>{{end}}</td>
                            <td>{{formatOptional .PValue}}</td>
                        </tr>
                        {{end}}
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Threshold</th>
                            <th>Pair</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Report.Thresholds}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{if .Pair}}{{.Pair}}{{else}}-{{end}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="pass">✓ PASS</span>
                                {{else}}
                                <span class="fail">✗ FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
