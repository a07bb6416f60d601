// Package format normalizes SAP date values and renders display labels.
package format

import (
	"strconv"
	"strings"
	"time"
)

const displayLayout = "02/01/2006"

// Largest instant, in epoch milliseconds, a /Date(ms)/ value may carry.
const maxEpochMillis = 8_640_000_000_000_000

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDate normalizes a raw date value into a time in loc. Accepted forms
// are time.Time, *time.Time, ISO-like strings with a literal T separator
// (without an offset they are read as local time in loc) and the
// /Date(<epoch-millis>)/ wrapper. Anything else reports false.
func ParseDate(raw any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}

	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.In(loc), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return v.In(loc), true
	case string:
		return parseString(strings.TrimSpace(v), loc)
	default:
		return time.Time{}, false
	}
}

func parseString(s string, loc *time.Location) (time.Time, bool) {
	switch {
	case s == "":
		return time.Time{}, false
	case strings.Contains(s, "T"):
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.In(loc), true
		}
		for _, layout := range localLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case strings.Contains(s, "/Date("):
		ms, ok := epochMillis(s)
		if !ok {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).In(loc), true
	default:
		return time.Time{}, false
	}
}

// epochMillis reads the leading integer inside /Date(...)/. Trailing offset
// suffixes such as +0000 are ignored.
func epochMillis(s string) (int64, bool) {
	s = strings.Replace(s, "/Date(", "", 1)
	s = strings.Replace(s, ")/", "", 1)
	s = strings.TrimSpace(s)

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	ms, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil || ms > maxEpochMillis || ms < -maxEpochMillis {
		return 0, false
	}
	return ms, true
}

// FormatDate renders any value ParseDate accepts as DD/MM/YYYY in loc, or ""
// when it cannot be parsed. The zero time renders as "".
func FormatDate(raw any, loc *time.Location) string {
	t, ok := ParseDate(raw, loc)
	if !ok {
		return ""
	}
	return t.Format(displayLayout)
}

const timestampLayout = "02/01/2006, 15:04:05"

// FormatTime renders a moment such as the dashboard's last refresh.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(timestampLayout)
}
