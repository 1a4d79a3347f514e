package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/benchdiff/internal/source"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "benchdiff [flags] [label...]",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Pairing flags
	flags.String("base", "", "Label every other label is compared against")
	flags.String("pairing", "", "Pairing when no labels are given: 'consecutive' or 'first'")

	// Statistics flags
	flags.Float64("confidence", DefaultConfidence, "Confidence level for delta intervals, between 0 and 1")
	flags.Float64("target-ci", 0, "Stop reading once every interval half-width is within this percent of its baseline mean (0 reads to EOF)")
	flags.Bool("deny-positive", false, "Exit non-zero when any metric regresses beyond its confidence interval")
	flags.StringSlice("threshold", nil, "Regression thresholds (repeatable, e.g., 'ns/op:delta_pct < 5')")

	// Input flags
	flags.StringP("input", "i", "-", "Sample file to read ('-' for stdin)")
	flags.String("input-format", source.FormatCSV, "Sample encoding: 'csv' or 'jsonl'")

	// Output flags
	flags.StringP("format", "f", string(FormatLive), "Output format: 'live', 'json', 'yaml' or 'html'")
	flags.StringP("output", "o", "", "Write the final report to a file instead of stdout")
	flags.Duration("refresh-interval", DefaultRefreshInterval, "Minimum time between live redraws")
	flags.String("log-level", DefaultLogLevel, "Log level for stderr diagnostics: debug, info, warn or error")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("otlp-endpoint", "", "OTLP collector endpoint for run traces")
	flags.String("otlp-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("otlp-insecure", false, "Disable TLS for the OTLP exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("base") {
		val, err := fs.GetString("base")
		if err != nil {
			return err
		}
		cfg.Baseline = strings.TrimSpace(val)
	}
	if fs.Changed("pairing") {
		val, err := fs.GetString("pairing")
		if err != nil {
			return err
		}
		cfg.Pairing = val
	}
	if fs.Changed("confidence") {
		val, err := fs.GetFloat64("confidence")
		if err != nil {
			return err
		}
		cfg.Confidence = val
	}
	if fs.Changed("target-ci") {
		val, err := fs.GetFloat64("target-ci")
		if err != nil {
			return err
		}
		cfg.TargetCI = val
	}
	if fs.Changed("deny-positive") {
		val, err := fs.GetBool("deny-positive")
		if err != nil {
			return err
		}
		cfg.DenyPositive = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("input") {
		val, err := fs.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(val)
	}
	if fs.Changed("input-format") {
		val, err := fs.GetString("input-format")
		if err != nil {
			return err
		}
		cfg.InputFormat = val
	}
	if fs.Changed("format") {
		val, err := fs.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = OutputFormat(val)
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = strings.TrimSpace(val)
	}
	if fs.Changed("refresh-interval") {
		val, err := fs.GetDuration("refresh-interval")
		if err != nil {
			return err
		}
		cfg.RefreshInterval = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	if fs.Changed("otlp-endpoint") {
		val, err := fs.GetString("otlp-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("otlp-protocol") {
		val, err := fs.GetString("otlp-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("otlp-insecure") {
		val, err := fs.GetBool("otlp-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}

	return nil
}
