package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo represents the metadata of an uploaded travel photo stored in the database.
// The binary content lives in object storage under StorageKey.
type Photo struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	PostID      uuid.UUID `json:"post_id" gorm:"type:uuid;not null;index"`
	StorageKey  string    `json:"storage_key" gorm:"not null"`
	FileName    string    `json:"file_name" gorm:"not null"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`

	// UploadIndex is the 0-based position within the post's upload batch.
	// It is the stable tie-break for timeline ordering.
	UploadIndex int `json:"upload_index"`

	// CapturedAtUTC/UTCOffsetMinutes come from EXIF when present.
	CapturedAtUTC    *time.Time `json:"captured_at_utc,omitempty"`
	UTCOffsetMinutes *int       `json:"utc_offset_minutes,omitempty"`

	// CapturedAtRaw keeps the original timestamp string for re-normalization.
	CapturedAtRaw string `json:"captured_at_raw,omitempty"`

	// EXIF GPS as handed over by the upload client. Kept on the photo so
	// pipeline re-runs can rebuild their input without re-decoding anything.
	ExifLatitude       *float64 `json:"exif_latitude,omitempty" gorm:"type:decimal(10,6)"`
	ExifLongitude      *float64 `json:"exif_longitude,omitempty" gorm:"type:decimal(10,6)"`
	ExifAltitude       *float64 `json:"exif_altitude,omitempty"`
	ExifAccuracyMeters *float64 `json:"exif_accuracy_meters,omitempty"`

	// Pixel dimensions reported by the upload client, used for the
	// orientation label.
	WidthPixels  *int `json:"width_pixels,omitempty"`
	HeightPixels *int `json:"height_pixels,omitempty"`

	// Timeline placement, written back by the pipeline.
	DayIndex      *int `json:"day_index,omitempty"`
	SequenceIndex *int `json:"sequence_index,omitempty"`

	Evidence []LocationEvidence `json:"evidence,omitempty" gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE"`
	Location *Location          `json:"location,omitempty" gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE"`
	Labels   []PhotoLabel       `json:"labels,omitempty" gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE"`
	Analyses []LLMAnalysis      `json:"analyses,omitempty" gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE"`
}

// PhotoLabel is a derived annotation on a photo (time-of-day, orientation,
// gps availability, llm-generated themes).
type PhotoLabel struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PhotoID    uuid.UUID `json:"photo_id" gorm:"type:uuid;not null;index"`
	LabelType  string    `json:"label_type" gorm:"not null"`
	LabelName  string    `json:"label_name" gorm:"not null"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// LLMAnalysis is the audit record of one raw language-model response for a photo.
type LLMAnalysis struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PhotoID      uuid.UUID `json:"photo_id" gorm:"type:uuid;not null;index"`
	AnalysisType string    `json:"analysis_type" gorm:"not null"`
	AnalysisData string    `json:"analysis_data" gorm:"type:text;not null"`
	Confidence   float64   `json:"confidence"`
	ModelUsed    string    `json:"model_used"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}
