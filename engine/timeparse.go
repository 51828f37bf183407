package engine

import "time"

// =============================================================================
// TIMESTAMP PARSING - Tolerant of historically persisted formats
// =============================================================================

// timestampLayouts covers every format observed in persisted attendance
// data: space or T separator, with or without fractional seconds, with or
// without a timezone offset.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999Z07:00",
}

// ParseTimestamp parses a persisted datetime string. Offsets are accepted
// but dropped: the system operates on naive local time, so the wall-clock
// fields are kept as-is. A value matching no layout is a hard error; the
// engine never guesses.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &InvalidTimestampError{Value: s}
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// Strip any offset, keeping wall-clock fields.
		return time.Date(t.Year(), t.Month(), t.Day(),
			t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local), nil
	}
	return time.Time{}, &InvalidTimestampError{Value: s}
}

// FormatTimestamp renders a time the way the store persists it.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
