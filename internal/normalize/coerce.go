package normalize

import (
	"math"
	"strconv"
	"strings"
)

// intField reads a non-negative integer from raw, falling back to def
func intField(raw map[string]any, key string, def int) int {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	n, ok := toInt(v)
	if !ok || n < 0 {
		return def
	}
	return n
}

// toInt coerces JSON/TOML-ish values into an int
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return clampInt64(n), true
	case uint:
		return clampInt64(int64(min(n, math.MaxInt64))), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case string:
		return parseCount(n)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, true
	}
	return int(math.Floor(f)), true
}

func clampInt64(n int64) int {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < math.MinInt32 {
		return math.MinInt32
	}
	return int(n)
}

// parseCount converts counter strings like "1.2K", "5.7M", "1,234" or "423"
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1_000
		s = s[:len(s)-1]
	case "M":
		multiplier = 1_000_000
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if multiplier > 1 {
		value = math.Round(value * multiplier)
	}
	return floatToInt(value)
}

// boolField reads a flag; strings "true"/"1"/"yes" count as set
func boolField(raw map[string]any, key string, def bool) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	case float64:
		return b != 0
	case int:
		return b != 0
	}
	return def
}

// stringField reads a trimmed string, falling back to def when blank
func stringField(raw map[string]any, key string, def string) string {
	v, ok := raw[key].(string)
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}
