package codec

import (
	"fmt"
	"strconv"
	"time"

	"tablekit/internal/dberr"
)

// ============================================================================
// Driver Form Helpers
// ============================================================================
//
// Drivers disagree on the Go type they hand back for a column: SQLite returns
// int64 for every INTEGER, pgx may return int32 or int16, TEXT can arrive as
// string or []byte. The helpers below accept every form a driver is known to
// produce and report anything else as a malformed value.

func malformed(raw any, format string, args ...any) error {
	return &dberr.DecodeError{Kind: dberr.Malformed, Raw: raw, Err: fmt.Errorf(format, args...)}
}

// asInt64 converts a driver value to int64
func asInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseInt(raw, string(v))
	case string:
		return parseInt(raw, v)
	}
	return 0, malformed(raw, "want integer, got %T", raw)
}

func parseInt(raw any, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, malformed(raw, "parse integer: %v", err)
	}
	return n, nil
}

// asFloat64 converts a driver value to float64
func asFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case []byte:
		return parseFloat(raw, string(v))
	case string:
		return parseFloat(raw, v)
	}
	return 0, malformed(raw, "want real, got %T", raw)
}

func parseFloat(raw any, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, malformed(raw, "parse real: %v", err)
	}
	return f, nil
}

// asString converts a driver value to string
func asString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", malformed(raw, "want text, got %T", raw)
}

// asBytes converts a driver value to a fresh byte slice
func asBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	case string:
		return []byte(v), nil
	}
	return nil, malformed(raw, "want blob, got %T", raw)
}

// asBool converts a driver value to bool (0 = false, non-zero = true)
func asBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return parseBool(raw, string(v))
	case string:
		return parseBool(raw, v)
	}
	return false, malformed(raw, "want boolean, got %T", raw)
}

func parseBool(raw any, s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, malformed(raw, "parse boolean: %v", err)
	}
	return b, nil
}

// timeLayouts are the text forms SQLite drivers write for timestamps
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asTime converts a driver value to time.Time
func asTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(raw, string(v))
	case string:
		return parseTime(raw, v)
	}
	return time.Time{}, malformed(raw, "want timestamp, got %T", raw)
}

func parseTime(raw any, s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, malformed(raw, "unrecognised timestamp layout")
}
