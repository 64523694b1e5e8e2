package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeacherProfile struct {
	ID                        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Headline                  *string   `gorm:"size:255" json:"headline"`
	Bio                       *string   `gorm:"type:text" json:"bio"`
	HourlyRate                int64     `gorm:"not null" json:"hourly_rate"`
	IsAvailableForNewStudents bool      `gorm:"not null" json:"is_available_for_new_students"`
	YearsOfExperience         int       `gorm:"not null;default:0" json:"years_of_experience"`
	Education                 *string   `gorm:"type:text" json:"education"`
	ProfilePictureURL         *string   `gorm:"size:512" json:"profile_picture_url"`
	AverageRating             float64   `gorm:"not null;default:0" json:"average_rating"`
	ReviewCount               int       `gorm:"not null;default:0" json:"review_count"`
	CurrentBalance            int64     `gorm:"not null;default:0" json:"-"`

	User         User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Subjects     []Subject          `gorm:"many2many:teacher_subjects;" json:"subjects,omitempty"`
	Availability []AvailabilitySlot `gorm:"foreignKey:TeacherProfileID" json:"availability,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *TeacherProfile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

type Subject struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"-"`
}

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
