package window

import (
	"strings"
	"time"
)

var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing Z means UTC and a
// timestamp without an offset is taken as UTC. When nothing matches it
// returns now and false; callers keep the event rather than drop it.
func ParseTimestamp(ts string, now time.Time) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return now, false
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t, true
		}
	}
	return now, false
}
