package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTimelineDaySegmentation(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	photos := []PhotoInput{
		{ID: ids[0], UploadIndex: 0, CapturedAtRaw: "2024-05-12T09:00:00Z"},
		{ID: ids[1], UploadIndex: 1, CapturedAtRaw: "2024-05-12T23:30:00Z"},
		{ID: ids[2], UploadIndex: 2, CapturedAtRaw: "2024-05-13T08:00:00Z"},
	}

	entries := BuildTimeline(photos)

	require.Len(t, entries, 3)
	assert.Equal(t, []int{1, 1, 2}, []int{entries[0].DayIndex, entries[1].DayIndex, entries[2].DayIndex})
	for i, e := range entries {
		assert.Equal(t, ids[i], e.PhotoID)
		assert.Equal(t, i, e.SequenceIndex)
		assert.True(t, e.HasTimestamp)
	}
}

func TestBuildTimelineSortsAcrossUploadOrder(t *testing.T) {
	t.Parallel()

	early := uuid.New()
	late := uuid.New()
	photos := []PhotoInput{
		{ID: late, UploadIndex: 0, CapturedAtRaw: "2024-05-12T18:00:00Z"},
		{ID: early, UploadIndex: 1, CapturedAtRaw: "2024-05-12T08:00:00Z"},
	}

	entries := BuildTimeline(photos)

	require.Len(t, entries, 2)
	assert.Equal(t, early, entries[0].PhotoID)
	assert.Equal(t, late, entries[1].PhotoID)
}

func TestBuildTimelineEqualTimestampsKeepUploadOrder(t *testing.T) {
	t.Parallel()

	first := uuid.New()
	second := uuid.New()
	photos := []PhotoInput{
		{ID: first, UploadIndex: 0, CapturedAtRaw: "2024-05-12T09:00:00Z"},
		{ID: second, UploadIndex: 1, CapturedAtRaw: "2024-05-12T09:00:00Z"},
	}

	entries := BuildTimeline(photos)

	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0].PhotoID)
	assert.Equal(t, second, entries[1].PhotoID)
}

func TestBuildTimelineUntimestampedAppendedLast(t *testing.T) {
	t.Parallel()

	timed := uuid.New()
	untimedA := uuid.New()
	untimedB := uuid.New()
	photos := []PhotoInput{
		{ID: untimedB, UploadIndex: 2},
		{ID: timed, UploadIndex: 0, CapturedAtRaw: "2024-05-12T09:00:00Z"},
		{ID: untimedA, UploadIndex: 1, CapturedAtRaw: "not a timestamp"},
	}

	entries := BuildTimeline(photos)

	require.Len(t, entries, 3)
	assert.Equal(t, timed, entries[0].PhotoID)

	// Untimestamped photos follow in upload order and share the final day.
	assert.Equal(t, untimedA, entries[1].PhotoID)
	assert.Equal(t, untimedB, entries[2].PhotoID)
	for _, e := range entries[1:] {
		assert.Equal(t, 1, e.DayIndex)
		assert.False(t, e.HasTimestamp)
		assert.Nil(t, e.CapturedAtUTC)
	}
	assert.Equal(t, 1, entries[1].SequenceIndex)
	assert.Equal(t, 2, entries[2].SequenceIndex)
}

func TestBuildTimelineTimezoneNormalization(t *testing.T) {
	t.Parallel()

	// 23:00 local at UTC+9 is 14:00 UTC the same day; a 16:00 UTC photo
	// uploaded earlier must still sort after it.
	tokyo := uuid.New()
	utc := uuid.New()
	offset := 540
	photos := []PhotoInput{
		{ID: utc, UploadIndex: 0, CapturedAtRaw: "2024-05-12T16:00:00Z"},
		{ID: tokyo, UploadIndex: 1, CapturedAtRaw: "2024:05:12 23:00:00", UTCOffsetMinutes: &offset},
	}

	entries := BuildTimeline(photos)

	require.Len(t, entries, 2)
	assert.Equal(t, tokyo, entries[0].PhotoID)
	assert.Equal(t, utc, entries[1].PhotoID)
	assert.Equal(t, 1, entries[0].DayIndex)
	assert.Equal(t, 1, entries[1].DayIndex)
}
