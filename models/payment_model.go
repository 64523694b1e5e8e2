package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentAttemptPending   = "pending"
	PaymentAttemptSucceeded = "succeeded"
	PaymentAttemptFailed    = "failed"
	PaymentAttemptCancelled = "cancelled"
	PaymentAttemptRefunded  = "refunded"
)

// Payment records one authorization attempt against the payment processor for a booking.
// Failed attempts are kept so retries leave a history.
type Payment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID       uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	Provider        string    `gorm:"size:20;not null" json:"provider"`
	AuthorizationID *string   `gorm:"size:255;uniqueIndex" json:"authorization_id,omitempty"`
	Amount          int64     `gorm:"not null" json:"amount"`
	Currency        string    `gorm:"size:3;not null" json:"currency"`
	Status          string    `gorm:"size:20;not null" json:"status"`
	RefundID        *string   `gorm:"size:255" json:"refund_id,omitempty"`
	FailureReason   *string   `gorm:"type:text" json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
