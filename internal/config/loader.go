package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/benchdiff/internal/source"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file to
// produce a Config. Positional arguments are the labels to compare.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Confidence:      DefaultConfidence,
		RefreshInterval: DefaultRefreshInterval,
		Format:          FormatLive,
		Input:           "-",
		InputFormat:     source.FormatCSV,
		LogLevel:        DefaultLogLevel,
		ConfigFile:      configPath,
		Tracing:         TracingConfig{SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	if labels := flagSet.Args(); len(labels) > 0 {
		cfg.Labels = append([]string(nil), labels...)
	}

	cfg.Baseline = strings.TrimSpace(cfg.Baseline)
	cfg.Format = OutputFormat(strings.ToLower(strings.TrimSpace(string(cfg.Format))))
	cfg.InputFormat = strings.ToLower(strings.TrimSpace(cfg.InputFormat))
	cfg.Pairing = strings.ToLower(strings.TrimSpace(cfg.Pairing))
	if cfg.Input == "" {
		cfg.Input = "-"
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "labels"); ok {
		labels, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("labels: %w", err)
		}
		cfg.Labels = labels
	}

	if raw, ok := lookupSetting(settings, "base", "baseline"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("base: %w", err)
		}
		cfg.Baseline = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "deny_positive"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("deny_positive: %w", err)
		}
		cfg.DenyPositive = val
	}

	if raw, ok := lookupSetting(settings, "confidence"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("confidence: %w", err)
		}
		cfg.Confidence = val
	}

	if raw, ok := lookupSetting(settings, "refresh_interval"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("refresh_interval: %w", err)
		}
		cfg.RefreshInterval = dur
	}

	if raw, ok := lookupSetting(settings, "target_ci"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("target_ci: %w", err)
		}
		cfg.TargetCI = val
	}

	if raw, ok := lookupSetting(settings, "pairing"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("pairing: %w", err)
		}
		cfg.Pairing = val
	}

	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		if val != "" {
			cfg.Format = OutputFormat(val)
		}
	}

	if raw, ok := lookupSetting(settings, "input"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("input: %w", err)
		}
		cfg.Input = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "input_format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("input_format: %w", err)
		}
		if val != "" {
			cfg.InputFormat = val
		}
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "log_level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		if val != "" {
			cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracingConfig(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseTracingConfig(value interface{}, base TracingConfig) (TracingConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := asSettings(value)
	if err != nil {
		return TracingConfig{}, err
	}
	tracing := base
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "service_name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "sample_rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	return tracing, nil
}
