package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{1.1, "1.1"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsFloat64(t *testing.T) {
	tests := []struct {
		input interface{}
		want  float64
	}{
		{0.95, 0.95},
		{"0.9", 0.9},
		{1, 1},
		{int64(3), 3},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asFloat64(tt.input)
		if err != nil {
			t.Errorf("asFloat64(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asFloat64(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if _, err := asFloat64([]int{1}); err == nil {
		t.Error("asFloat64([]int) should fail")
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{2, 2 * time.Second},
		{0.1, 100 * time.Millisecond},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %s, want %s", tt.input, got, tt.want)
		}
	}
	if _, err := asDuration("soon"); err == nil {
		t.Error("asDuration(soon) should fail")
	}
}

func TestAsStringSlice(t *testing.T) {
	got, err := asStringSlice([]interface{}{"a", 1})
	if err != nil || len(got) != 2 || got[0] != "a" || got[1] != "1" {
		t.Errorf("asStringSlice() = %v, %v", got, err)
	}
	got, err = asStringSlice("single")
	if err != nil || len(got) != 1 || got[0] != "single" {
		t.Errorf("asStringSlice(single) = %v, %v", got, err)
	}
}

func TestAsStringRejectsSections(t *testing.T) {
	if _, err := asString(map[string]interface{}{"a": 1}); err == nil {
		t.Error("asString(map) should fail")
	}
	if _, err := asStringSlice(42); err == nil {
		t.Error("asStringSlice(42) should fail")
	}
}

func TestLookupSetting(t *testing.T) {
	tests := []struct {
		stored string
		key    string
	}{
		{"deny_positive", "deny_positive"},
		{"deny-positive", "deny_positive"},
		{"denypositive", "deny_positive"},
		{"baseline", "base"},
	}
	for _, tt := range tests {
		settings := map[string]interface{}{tt.stored: true}
		if val, ok := lookupSetting(settings, tt.key, "baseline"); !ok || val != true {
			t.Errorf("lookupSetting(%q) with %q stored = %v, %v", tt.key, tt.stored, val, ok)
		}
	}
	if _, ok := lookupSetting(map[string]interface{}{"deny_positive": true}, "missing"); ok {
		t.Error("lookupSetting(missing) should not match")
	}
}

func TestApplyConfigSettingsErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
	}{
		{"confidence", map[string]interface{}{"confidence": []int{1}}},
		{"refresh_interval", map[string]interface{}{"refresh_interval": "fast"}},
		{"deny_positive", map[string]interface{}{"deny_positive": "maybe"}},
		{"tracing", map[string]interface{}{"tracing": "on"}},
		{"tracing", map[string]interface{}{"tracing": map[string]interface{}{"sample_rate": "half"}}},
	}
	for _, tt := range tests {
		cfg := &Config{}
		err := applyConfigSettings(cfg, tt.settings)
		if err == nil {
			t.Errorf("applyConfigSettings(%v) expected error", tt.settings)
			continue
		}
		if got := err.Error(); len(got) < len(tt.name) || got[:len(tt.name)] != tt.name {
			t.Errorf("error %q should be prefixed with %q", got, tt.name)
		}
	}
}

func TestApplyFlagOverridesOnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)
	if err := fs.Parse([]string{"--pairing", "first"}); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Confidence: 0.8, Format: FormatYAML, Tracing: TracingConfig{Endpoint: "from-file"}}
	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}
	if cfg.Pairing != "first" {
		t.Errorf("Pairing = %q, want first", cfg.Pairing)
	}
	if cfg.Confidence != 0.8 || cfg.Format != FormatYAML || cfg.Tracing.Endpoint != "from-file" {
		t.Errorf("unchanged flags should not override file settings: %+v", cfg)
	}
}
