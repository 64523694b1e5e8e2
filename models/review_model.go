package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	TeacherProfileID uuid.UUID `gorm:"type:uuid;not null;index" json:"teacher_profile_id"`
	FromUserID       uuid.UUID `gorm:"type:uuid;not null" json:"from_user_id"`
	ToUserID         uuid.UUID `gorm:"type:uuid;not null" json:"to_user_id"`
	Rating           int       `gorm:"not null" json:"rating"`
	Comment          string    `gorm:"type:text;not null" json:"comment"`

	FromUser User `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
