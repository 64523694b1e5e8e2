package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/services"
	"gorm.io/gorm"
)

// ReminderJob emails both parties of confirmed sessions starting in about an hour.
// It runs every five minutes, so the 60 to 65 minute window hits each session once.
type ReminderJob struct {
	db       *gorm.DB
	notifier services.Notifier
	now      func() time.Time
}

func NewReminderJob(db *gorm.DB, notifier services.Notifier) *ReminderJob {
	return &ReminderJob{db: db, notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

func (j *ReminderJob) Run() {
	if _, err := j.SendClassReminders(context.Background()); err != nil {
		log.Printf("Error checking for upcoming classes: %v", err)
	}
}

// SendClassReminders returns how many bookings were reminded.
func (j *ReminderJob) SendClassReminders(ctx context.Context) (int, error) {
	now := j.now()
	lowerBound := now.Add(60 * time.Minute)
	upperBound := now.Add(65 * time.Minute)

	var upcoming []models.Booking
	err := j.db.WithContext(ctx).
		Preload("Parent").
		Preload("TeacherProfile.User").
		Where("status = ? AND start_time >= ? AND start_time < ?", models.BookingConfirmed, lowerBound, upperBound).
		Find(&upcoming).Error
	if err != nil {
		return 0, err
	}

	for _, booking := range upcoming {
		log.Printf("Sending reminder for booking ID: %s", booking.ID)

		subject := "Reminder: Your session starts in 1 hour!"
		body := fmt.Sprintf(
			"<h1>Session Reminder</h1><p>Hi there,</p><p>This is a friendly reminder that your session is scheduled to start at %s (UTC).</p>",
			booking.StartTime.Format(time.Kitchen),
		)
		j.notifier.Notify(booking.Parent, subject, body)
		j.notifier.Notify(booking.TeacherProfile.User, subject, body)
	}
	return len(upcoming), nil
}
