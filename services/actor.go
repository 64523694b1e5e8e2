package services

import (
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
)

// Actor is the authenticated requester, passed explicitly into every operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  string
}

func (a Actor) IsTeacher() bool { return a.Role == models.RoleTeacher }

// Notifier delivers user-facing notifications. Implementations must not block.
type Notifier interface {
	Notify(to models.User, subject, htmlBody string)
}

// Publisher pushes realtime events to connected users. It reports whether the
// user had a live connection.
type Publisher interface {
	Publish(userID uuid.UUID, eventType string, payload any) bool
}

type nopNotifier struct{}

func (nopNotifier) Notify(models.User, string, string) {}

type nopPublisher struct{}

func (nopPublisher) Publish(uuid.UUID, string, any) bool { return false }
