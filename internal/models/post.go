package models

import (
	"time"

	"github.com/google/uuid"
)

// Post represents a single trip post owning a batch of travel photos.
// Tags and the recommended route summary are stored as JSON text columns.
type Post struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Tags        string    `json:"tags" gorm:"type:text"`
	UserID      string    `json:"user_id" gorm:"index;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Photos     []Photo            `json:"photos,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Categories []Category         `json:"categories,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Routes     []RecommendedRoute `json:"routes,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// User is the owning account for posts. The ID is the identity provider's
// subject claim, not a locally generated key.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
