package pipeline

import (
	"log"
	"sort"
	"time"
)

// BuildTimeline orders a post's photos chronologically and segments them into
// 1-based trip days. Photos without an extractable timestamp are appended
// last in upload order and share the trip's final day index.
func BuildTimeline(photos []PhotoInput) []TimelineEntry {
	type stamped struct {
		photo PhotoInput
		at    time.Time
	}

	var timed []stamped
	var untimed []PhotoInput
	for _, p := range photos {
		at, err := NormalizeTimestamp(p.CapturedAtRaw, p.UTCOffsetMinutes)
		if err != nil {
			if p.CapturedAtRaw != "" {
				log.Printf("Photo %s: capture timestamp %q did not match any accepted encoding", p.ID, p.CapturedAtRaw)
			}
			untimed = append(untimed, p)
			continue
		}
		timed = append(timed, stamped{photo: p, at: at})
	}

	// Stable sort: equal timestamps keep upload order.
	sort.SliceStable(timed, func(i, j int) bool {
		if !timed[i].at.Equal(timed[j].at) {
			return timed[i].at.Before(timed[j].at)
		}
		return timed[i].photo.UploadIndex < timed[j].photo.UploadIndex
	})
	sort.SliceStable(untimed, func(i, j int) bool {
		return untimed[i].UploadIndex < untimed[j].UploadIndex
	})

	entries := make([]TimelineEntry, 0, len(photos))
	maxDay := 1
	for seq, s := range timed {
		day := 1 + DaysBetween(timed[0].at, s.at)
		if day > maxDay {
			maxDay = day
		}
		at := s.at
		entries = append(entries, TimelineEntry{
			PhotoID:       s.photo.ID,
			DayIndex:      day,
			SequenceIndex: seq,
			CapturedAtUTC: &at,
			HasTimestamp:  true,
		})
	}

	for i, p := range untimed {
		entries = append(entries, TimelineEntry{
			PhotoID:       p.ID,
			DayIndex:      maxDay,
			SequenceIndex: len(timed) + i,
		})
	}

	return entries
}
