package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilitySlot is a weekly window; StartTime and EndTime are zero-padded "HH:MM".
type AvailabilitySlot struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherProfileID uuid.UUID `gorm:"type:uuid;not null;index" json:"teacher_profile_id"`
	DayOfWeek        int       `gorm:"not null" json:"day_of_week"`
	StartTime        string    `gorm:"size:5;not null" json:"start_time"`
	EndTime          string    `gorm:"size:5;not null" json:"end_time"`
	IsRecurring      bool      `gorm:"not null" json:"is_recurring"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *AvailabilitySlot) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
