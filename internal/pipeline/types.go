package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies which collaborator produced a piece of location evidence.
type Source int

const (
	SourceEXIF Source = iota
	SourceOCR
	SourceLLM
	SourceManual
)

// String returns the persisted name for the source.
func (s Source) String() string {
	switch s {
	case SourceEXIF:
		return "exif"
	case SourceOCR:
		return "ocr"
	case SourceLLM:
		return "llm"
	case SourceManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseSource maps a persisted source name back to its variant.
func ParseSource(name string) Source {
	switch name {
	case "exif":
		return SourceEXIF
	case "ocr":
		return SourceOCR
	case "llm":
		return SourceLLM
	case "manual":
		return SourceManual
	default:
		return SourceLLM
	}
}

// rank orders sources for confidence tie-breaks. Lower wins.
func (s Source) rank() int {
	switch s {
	case SourceEXIF:
		return 0
	case SourceOCR:
		return 1
	case SourceLLM:
		return 2
	case SourceManual:
		return 3
	default:
		return 4
	}
}

// Evidence is a single source's claim about a photo's location.
type Evidence struct {
	Source         Source
	Latitude       float64
	Longitude      float64
	Altitude       *float64
	AccuracyMeters *float64
	Confidence     float64
	RawText        string
}

// ExifGPS carries the GPS fields decoded from a photo's EXIF block by the
// upload collaborator. Decoding itself happens outside the pipeline.
type ExifGPS struct {
	Latitude       float64
	Longitude      float64
	AltitudeMeters *float64
	AccuracyMeters *float64
}

// PhotoInput is one photo as the pipeline sees it.
type PhotoInput struct {
	ID          uuid.UUID
	UploadIndex int

	// CapturedAtRaw is the capture timestamp as text in whatever encoding the
	// upload produced. UTCOffsetMinutes applies when the text has no zone.
	CapturedAtRaw    string
	UTCOffsetMinutes *int

	EXIF *ExifGPS

	// ImageURL is a presigned reference handed to the OCR/LLM collaborators.
	// Empty means no image content is available for augmentation.
	ImageURL string

	// PriorEvidence is the stored, append-only evidence history. New evidence
	// gathered by this run is appended after it, never merged into it.
	PriorEvidence []Evidence
}

// ThemeLabel is an AI-derived theme annotation for a photo.
type ThemeLabel struct {
	Name       string
	Confidence float64
}

// RawAnalysis is the audit record of one raw collaborator response.
type RawAnalysis struct {
	Type       string
	Data       string
	Model      string
	Confidence float64
}

// CollectedPhoto is the Evidence Collector's output for one photo.
type CollectedPhoto struct {
	PhotoID     uuid.UUID
	NewEvidence []Evidence
	Themes      []ThemeLabel
	Analyses    []RawAnalysis
}

// ResolvedLocation is the at-most-one authoritative location of a photo.
type ResolvedLocation struct {
	PhotoID    uuid.UUID
	Latitude   float64
	Longitude  float64
	Altitude   *float64
	Confidence float64
	Source     Source
	Country    *string
	City       *string
	Region     *string
	Landmark   *string
}

// Rejection marks one evidence record (by index into the photo's combined
// evidence list) as losing resolution, with the policy reason. The record
// itself stays in the history.
type Rejection struct {
	Index  int
	Reason string
}

// Resolution is the Location Resolver's output for one photo. A nil Location
// means the photo's position is unknown, which is a valid end state.
type Resolution struct {
	Location *ResolvedLocation
	Rejected []Rejection
}

// TimelineEntry places one photo on the trip's day-segmented timeline.
type TimelineEntry struct {
	PhotoID        uuid.UUID
	DayIndex       int
	SequenceIndex  int
	CapturedAtUTC  *time.Time
	HasTimestamp   bool
}

// CategoryType distinguishes post-level category kinds.
type CategoryType string

const (
	CategoryCountry CategoryType = "country"
	CategoryCity    CategoryType = "city"
	CategoryTheme   CategoryType = "theme"
)

// Category is a post-level classification with aggregate confidence.
type Category struct {
	Type       CategoryType
	Name       string
	Confidence float64
}

// Waypoint is one stop in a recommended route, always backed by a resolved
// location of this post.
type Waypoint struct {
	PhotoID   uuid.UUID
	Latitude  float64
	Longitude float64
	Label     string
}

// Route is an ordered waypoint sequence for a post.
type Route struct {
	Name      string
	Waypoints []Waypoint
}

// Result is the full output of one pipeline run for a post.
type Result struct {
	PostID    uuid.UUID
	Collected []CollectedPhoto
	// Resolutions is ordered like the input photos.
	Resolutions []Resolution
	Timeline    []TimelineEntry
	Categories  []Category
	Route       Route
}
