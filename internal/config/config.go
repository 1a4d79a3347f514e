package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/torosent/benchdiff/internal/pairing"
	"github.com/torosent/benchdiff/internal/source"
	"github.com/torosent/benchdiff/internal/threshold"
)

type OutputFormat string

const (
	FormatLive OutputFormat = "live"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
	FormatHTML OutputFormat = "html"
)

const (
	DefaultConfidence      = 0.95
	DefaultRefreshInterval = 100 * time.Millisecond
	DefaultLogLevel        = "warn"
)

type Config struct {
	Labels          []string      `mapstructure:"labels"`
	Baseline        string        `mapstructure:"base"`
	DenyPositive    bool          `mapstructure:"deny_positive"`
	Confidence      float64       `mapstructure:"confidence"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	TargetCI        float64       `mapstructure:"target_ci"`
	Pairing         string        `mapstructure:"pairing"`
	Format          OutputFormat  `mapstructure:"format"`
	Input           string        `mapstructure:"input"`
	InputFormat     string        `mapstructure:"input_format"`
	Output          string        `mapstructure:"output"`
	Thresholds      []string      `mapstructure:"thresholds"`
	LogLevel        string        `mapstructure:"log_level"`
	ConfigFile      string        `mapstructure:"-"`
	Tracing         TracingConfig `mapstructure:"tracing"`
}

// TracingConfig selects the OTLP exporter for run and render spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Enabled reports whether an OTLP endpoint is configured, either directly
// or through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ValidationError collects every problem found by Validate. It matches
// pairing.ErrConfiguration.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (e ValidationError) Unwrap() error { return pairing.ErrConfiguration }

func (c Config) Validate() error {
	var issues []string

	if !(c.Confidence > 0 && c.Confidence < 1) {
		issues = append(issues, fmt.Sprintf("confidence must be between 0 and 1 (exclusive), got %g", c.Confidence))
	}
	if c.RefreshInterval <= 0 {
		issues = append(issues, fmt.Sprintf("refresh interval must be positive, got %s", c.RefreshInterval))
	}
	if c.TargetCI < 0 {
		issues = append(issues, fmt.Sprintf("target CI must be non-negative, got %g", c.TargetCI))
	}

	if _, err := pairing.StrategyByName(c.Pairing); err != nil {
		issues = append(issues, err.Error())
	}
	if c.Pairing != "" && (len(c.Labels) > 0 || c.Baseline != "") {
		issues = append(issues, "pairing strategy cannot be combined with explicit labels or a base label")
	}
	if err := pairing.Validate(c.Baseline, c.Labels); err != nil {
		issues = append(issues, err.Error())
	}

	switch c.Format {
	case FormatLive, FormatJSON, FormatYAML, FormatHTML:
	default:
		issues = append(issues, fmt.Sprintf("output format %q is not supported (use live, json, yaml or html)", c.Format))
	}
	if c.Format == FormatLive && strings.TrimSpace(c.Output) != "" {
		issues = append(issues, "output file requires --format json, yaml or html")
	}

	switch strings.ToLower(c.InputFormat) {
	case "", source.FormatCSV, source.FormatJSONL, "ndjson":
	default:
		issues = append(issues, fmt.Sprintf("input format %q is not supported (use csv or jsonl)", c.InputFormat))
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		issues = append(issues, err.Error())
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported (use grpc or http)", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}

// ParseLogLevel maps "debug", "info", "warn" or "error" to a slog level.
// An empty string selects the default level.
func ParseLogLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultLogLevel
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q is not supported (use debug, info, warn or error)", s)
	}
	return level, nil
}
