package jobs

import (
	"context"
	"log"

	"github.com/anjiri1684/tutor_marketplace/services"
)

type ExpiryJob struct {
	bookings *services.BookingService
}

func NewExpiryJob(bookings *services.BookingService) *ExpiryJob {
	return &ExpiryJob{bookings: bookings}
}

// Run cancels bookings the teacher never confirmed before they were due to start.
func (j *ExpiryJob) Run() {
	n, err := j.bookings.ExpireStalePending(context.Background())
	if err != nil {
		log.Printf("Error expiring unconfirmed bookings: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Expired %d unconfirmed booking(s).", n)
	}
}
