package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationEvidence is one source's claim about a photo's location.
// Rows are append-only: resolution may mark a row rejected but never deletes
// or rewrites its coordinates (audit trail).
type LocationEvidence struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PhotoID        uuid.UUID `json:"photo_id" gorm:"type:uuid;not null;index"`
	Source         string    `json:"source" gorm:"not null"`
	Latitude       float64   `json:"latitude" gorm:"type:decimal(10,6)"`
	Longitude      float64   `json:"longitude" gorm:"type:decimal(10,6)"`
	Altitude       *float64  `json:"altitude,omitempty"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	Confidence     float64   `json:"confidence"`
	RawText        string    `json:"raw_text,omitempty" gorm:"type:text"`
	Rejected       bool      `json:"rejected"`
	RejectReason   string    `json:"reject_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Location is the resolved, at-most-one location of a photo. Coordinates are
// authoritative; the administrative names are best-effort enrichment.
type Location struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PhotoID    uuid.UUID `json:"photo_id" gorm:"type:uuid;not null;uniqueIndex"`
	Latitude   float64   `json:"latitude" gorm:"type:decimal(10,6)"`
	Longitude  float64   `json:"longitude" gorm:"type:decimal(10,6)"`
	Altitude   *float64  `json:"altitude,omitempty"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source" gorm:"not null"`
	Country    *string   `json:"country,omitempty"`
	City       *string   `json:"city,omitempty"`
	Region     *string   `json:"region,omitempty"`
	Landmark   *string   `json:"landmark,omitempty"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Category is a post-level classification (country, city or theme).
type Category struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PostID       uuid.UUID `json:"post_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_post_type_name"`
	CategoryType string    `json:"category_type" gorm:"not null;uniqueIndex:idx_post_type_name"`
	CategoryName string    `json:"category_name" gorm:"not null;uniqueIndex:idx_post_type_name"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// RecommendedRoute stores one ordered waypoint sequence for a post.
// RouteData holds the serialized waypoint list.
type RecommendedRoute struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;not null;index"`
	RouteName string    `json:"route_name" gorm:"not null"`
	RouteData string    `json:"route_data" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
