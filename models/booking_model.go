package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherProfileID uuid.UUID  `gorm:"type:uuid;not null;index" json:"teacher_profile_id"`
	ParentID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"parent_id"`
	SubjectID        *uuid.UUID `gorm:"type:uuid" json:"subject_id,omitempty"`

	StartTime time.Time `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`

	Status        BookingStatus `gorm:"size:20;not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"size:20;not null" json:"payment_status"`

	Price           int64   `gorm:"not null" json:"price"`
	PlatformFee     int64   `gorm:"not null" json:"platform_fee"`
	TeacherEarnings int64   `gorm:"not null" json:"teacher_earnings"`
	Currency        string  `gorm:"size:3;not null" json:"currency"`
	Notes           *string `gorm:"type:text" json:"notes,omitempty"`

	PaymentProvider        string  `gorm:"size:20" json:"payment_provider"`
	PaymentAuthorizationID *string `gorm:"size:255;index" json:"payment_authorization_id,omitempty"`
	RefundID               *string `gorm:"size:255" json:"refund_id,omitempty"`

	CancelledBy        *uuid.UUID `gorm:"type:uuid" json:"cancelled_by,omitempty"`
	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`

	Version int `gorm:"not null" json:"-"`

	TeacherProfile TeacherProfile `gorm:"foreignKey:TeacherProfileID" json:"teacher_profile,omitempty"`
	Parent         User           `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Subject        *Subject       `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	if b.Version == 0 {
		b.Version = 1
	}
	return nil
}

// BookingEvent is one row of a booking's audit trail. FromStatus is empty for creation.
type BookingEvent struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"booking_id"`
	ActorID    uuid.UUID         `gorm:"type:uuid;not null" json:"actor_id"`
	FromStatus BookingStatus     `gorm:"size:20" json:"from_status"`
	ToStatus   BookingStatus     `gorm:"size:20;not null" json:"to_status"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (e *BookingEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
