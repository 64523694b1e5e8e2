package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
)

// User mirrors the identity provider's record for a requester. Rows are upserted
// from verified token claims, never registered here.
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName          string    `gorm:"size:255;not null" json:"full_name"`
	Email             string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Role              string    `gorm:"size:20;not null;default:'parent'" json:"role"`
	ProfilePictureURL *string   `gorm:"size:512" json:"profile_picture_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
