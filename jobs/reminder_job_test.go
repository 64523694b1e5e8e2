package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/database/dbtest"
	"github.com/anjiri1684/tutor_marketplace/models"
)

type capturingNotifier struct {
	mu sync.Mutex
	to []string
}

func (n *capturingNotifier) Notify(to models.User, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.to = append(n.to, to.Email)
}

func TestSendClassReminders(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Date(2030, time.May, 6, 12, 0, 0, 0, time.UTC)

	parent := models.User{FullName: "Pat", Email: "pat@example.com", Role: models.RoleParent}
	teacher := models.User{FullName: "Tess", Email: "tess@example.com", Role: models.RoleTeacher}
	db.Create(&parent)
	db.Create(&teacher)
	profile := models.TeacherProfile{UserID: teacher.ID, HourlyRate: 5000, IsAvailableForNewStudents: true}
	db.Create(&profile)

	mk := func(start time.Time, status models.BookingStatus) {
		b := models.Booking{
			TeacherProfileID: profile.ID,
			ParentID:         parent.ID,
			StartTime:        start,
			EndTime:          start.Add(time.Hour),
			Status:           status,
			PaymentStatus:    models.PaymentPaid,
			Currency:         "usd",
		}
		if err := db.Omit("TeacherProfile", "Parent", "Subject").Create(&b).Error; err != nil {
			t.Fatalf("create booking: %v", err)
		}
	}
	mk(now.Add(62*time.Minute), models.BookingConfirmed)
	mk(now.Add(62*time.Minute), models.BookingPending)
	mk(now.Add(30*time.Minute), models.BookingConfirmed)
	mk(now.Add(66*time.Minute), models.BookingConfirmed)

	notifier := &capturingNotifier{}
	job := NewReminderJob(db, notifier)
	job.now = func() time.Time { return now }

	n, err := job.SendClassReminders(context.Background())
	if err != nil {
		t.Fatalf("SendClassReminders: %v", err)
	}
	if n != 1 {
		t.Errorf("reminded %d bookings, want 1", n)
	}
	if len(notifier.to) != 2 || notifier.to[0] != "pat@example.com" || notifier.to[1] != "tess@example.com" {
		t.Errorf("notified %v", notifier.to)
	}
}
