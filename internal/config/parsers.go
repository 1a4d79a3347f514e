// Package config provides configuration loading and parsing for benchdiff.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupSetting finds key in settings decoded by viper, which lower-cases
// every key. A snake_case key also matches its kebab-case and joined
// spellings, so refresh_interval, refresh-interval and refreshInterval all
// resolve. aliases are tried after key.
func lookupSetting(settings map[string]interface{}, key string, aliases ...string) (interface{}, bool) {
	for _, name := range append([]string{key}, aliases...) {
		name = strings.ToLower(name)
		for _, candidate := range []string{
			name,
			strings.ReplaceAll(name, "_", "-"),
			strings.ReplaceAll(name, "_", ""),
		} {
			if val, ok := settings[candidate]; ok {
				return val, true
			}
		}
	}
	return nil, false
}

// asString accepts any scalar; YAML labels such as 1.10 arrive as numbers.
func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", value)
	}
}

func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return false, nil
		}
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("expected a boolean, got %T", value)
	}
}

// asDuration parses "250ms"-style strings; bare numbers are seconds, so
// refresh_interval: 0.5 is half a second.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		return time.ParseDuration(v)
	case int, int64, float64:
		secs, err := asFloat64(v)
		if err != nil {
			return 0, err
		}
		return time.Duration(secs * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected a duration, got %T", value)
	}
}

// asStringSlice accepts a YAML/JSON list or a single string.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			result[i] = str
		}
		return result, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}

// asSettings returns a nested section such as tracing with lower-cased keys.
func asSettings(value interface{}) (map[string]interface{}, error) {
	section, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a section, got %T", value)
	}
	result := make(map[string]interface{}, len(section))
	for key, val := range section {
		result[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return result, nil
}
