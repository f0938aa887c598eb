package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNormalizeTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		offset  *int
		want    time.Time
		wantErr bool
	}{
		{
			name: "rfc3339 with zone",
			raw:  "2024-05-12T09:00:00+09:00",
			want: time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "rfc3339 utc",
			raw:  "2024-05-12T09:00:00Z",
			want: time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC),
		},
		{
			name:   "exif naive with offset",
			raw:    "2023:06:15 14:30:00",
			offset: intPtr(540), // UTC+9
			want:   time.Date(2023, 6, 15, 5, 30, 0, 0, time.UTC),
		},
		{
			name:   "iso naive with negative offset",
			raw:    "2023-06-15 14:30:00",
			offset: intPtr(-300), // UTC-5
			want:   time.Date(2023, 6, 15, 19, 30, 0, 0, time.UTC),
		},
		{
			name: "naive without offset is utc",
			raw:  "2023-06-15T14:30:00",
			want: time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			name: "date only",
			raw:  "2023-06-15",
			want: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "zoned input ignores offset parameter",
			raw:    "2024-05-12T09:00:00Z",
			offset: intPtr(540),
			want:   time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC),
		},
		{name: "garbage", raw: "last tuesday", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace only", raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeTimestamp(tt.raw, tt.offset)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnparsableTimestamp)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()

	a := time.Date(2024, 5, 12, 23, 30, 0, 0, time.UTC)
	b := time.Date(2024, 5, 13, 0, 10, 0, 0, time.UTC)

	// 40 minutes apart but on consecutive calendar days.
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, -1, DaysBetween(b, a))
}
