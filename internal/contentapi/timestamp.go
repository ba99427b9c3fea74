package contentapi

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// unix values above this are taken as milliseconds rather than seconds.
// The cutoff sits around the year 2255, well clear of real content dates.
const millisCutoff = 9_000_000_000

// ParseTimestamp normalizes the timestamp shapes the content API is known
// to emit: RFC3339 strings, unix seconds, unix milliseconds, and
// seconds/nanoseconds maps (with or without a leading underscore on the
// keys). Returns false for anything it does not recognize.
func ParseTimestamp(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case string:
		return parseTimestampString(v)
	case float64:
		return fromUnix(v), true
	case int64:
		return fromUnix(float64(v)), true
	case int:
		return fromUnix(float64(v)), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromUnix(f), true
	case map[string]any:
		return parseTimestampMap(v)
	default:
		return time.Time{}, false
	}
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	// Date-only strings show up on older course documents.
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromUnix(n), true
	}
	return time.Time{}, false
}

func parseTimestampMap(m map[string]any) (time.Time, bool) {
	sec, ok := numberField(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, false
	}
	nsec, _ := numberField(m, "nanoseconds", "_nanoseconds")
	return time.Unix(int64(sec), int64(nsec)).UTC(), true
}

func numberField(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, present := m[k]
		if !present {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func fromUnix(n float64) time.Time {
	if n > millisCutoff {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
