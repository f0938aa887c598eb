package pipeline

import (
	"strings"
	"time"
)

// Capture timestamps arrive in several textual encodings depending on which
// camera or upload path produced them. Every accepted input normalizes to a
// single UTC instant before any timeline comparison happens; comparing raw
// strings or slicing them by position is not acceptable here.
//
// Zoned encodings carry their own offset. Naive encodings are interpreted as
// local time and shifted by the photo's UTC offset when one is known,
// otherwise they are taken as UTC.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05 -07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02 15:04:05", // EXIF DateTimeOriginal
	"2006-01-02",
	"2006:01:02",
}

// NormalizeTimestamp maps any accepted timestamp encoding to a UTC instant.
// offsetMinutes applies only to naive encodings. A failure to match every
// accepted layout returns ErrUnparsableTimestamp.
func NormalizeTimestamp(raw string, offsetMinutes *int) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrUnparsableTimestamp
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	for _, layout := range naiveLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if offsetMinutes != nil {
			// Naive text is local time: UTC = local - offset.
			t = t.Add(-time.Duration(*offsetMinutes) * time.Minute)
		}
		return t.UTC(), nil
	}

	return time.Time{}, ErrUnparsableTimestamp
}

// DayKey truncates a UTC instant to its calendar date. Day indices are
// computed from date differences, never from raw durations, so a photo at
// 23:30 and one at 00:10 the next day land on consecutive days.
func DayKey(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (both UTC dates).
func DaysBetween(a, b time.Time) int {
	return int(DayKey(b).Sub(DayKey(a)).Hours() / 24)
}
