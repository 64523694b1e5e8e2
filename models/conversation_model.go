package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is the single thread between one parent and one teacher user.
// PairKey is the unordered pair of participants, so either orientation finds it.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParentID  uuid.UUID `gorm:"type:uuid;not null;index" json:"parent_id"`
	TeacherID uuid.UUID `gorm:"type:uuid;not null;index" json:"teacher_id"`
	PairKey   string    `gorm:"size:73;uniqueIndex" json:"-"`

	Parent  User `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Teacher User `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	c.PairKey = ConversationPairKey(c.ParentID, c.TeacherID)
	return nil
}

// ConversationPairKey orders the two ids so (a, b) and (b, a) share a key.
func ConversationPairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.ParentID == userID || c.TeacherID == userID
}

// OtherParty returns the participant who is not userID.
func (c *Conversation) OtherParty(userID uuid.UUID) uuid.UUID {
	if c.ParentID == userID {
		return c.TeacherID
	}
	return c.ParentID
}
