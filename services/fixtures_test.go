package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/database/dbtest"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/payments"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeCoordinator records calls and fails on demand.
type fakeCoordinator struct {
	mu           sync.Mutex
	authorizeErr error
	refundErr    error
	cancelErr    error
	status       payments.Status
	authorized   []payments.AuthorizationRequest
	cancelled    []string
	refunded     []string
	seq          int
}

func (f *fakeCoordinator) Name() string { return "fake" }

func (f *fakeCoordinator) Authorize(_ context.Context, req payments.AuthorizationRequest) (*payments.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authorizeErr != nil {
		return nil, f.authorizeErr
	}
	f.seq++
	f.authorized = append(f.authorized, req)
	id := fmt.Sprintf("pi_%d", f.seq)
	return &payments.Authorization{ID: id, ClientSecret: id + "_secret"}, nil
}

func (f *fakeCoordinator) CancelAuthorization(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeCoordinator) Refund(_ context.Context, id string, _ int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return "", f.refundErr
	}
	f.refunded = append(f.refunded, id)
	return "re_" + id, nil
}

func (f *fakeCoordinator) Status(context.Context, string) (payments.Status, error) {
	if f.status == "" {
		return payments.StatusPending, nil
	}
	return f.status, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	online map[uuid.UUID]bool
	events []string
}

func (p *recordingPublisher) Publish(userID uuid.UUID, eventType string, _ any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return p.online[userID]
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []string
	bodies []string
}

func (n *recordingNotifier) Notify(to models.User, subject, htmlBody string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to.Email+": "+subject)
	n.bodies = append(n.bodies, htmlBody)
}

var baseTime = time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	pay       *fakeCoordinator
	bookings  *BookingService
	parent    Actor
	teacher   Actor
	profile   models.TeacherProfile
	outsider  Actor
	clock     time.Time
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)

	f := &fixture{
		db:        db,
		pay:       &fakeCoordinator{},
		clock:     baseTime,
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{online: map[uuid.UUID]bool{}},
	}
	f.parent = f.createUser(t, "Pat Parent", "parent@example.com", models.RoleParent)
	f.teacher = f.createUser(t, "Tess Teacher", "teacher@example.com", models.RoleTeacher)
	f.outsider = f.createUser(t, "Olly Outsider", "outsider@example.com", models.RoleParent)

	f.profile = models.TeacherProfile{UserID: f.teacher.ID, HourlyRate: 5000, IsAvailableForNewStudents: true}
	if err := db.Create(&f.profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	f.bookings = NewBookingService(db, f.pay, f.notifier, f.publisher, BookingOptions{
		CommissionRate:     0.15,
		CancellationNotice: 24 * time.Hour,
		Currency:           "usd",
	})
	f.bookings.SetClock(func() time.Time { return f.clock })
	return f
}

func (f *fixture) createUser(t *testing.T, name, email, role string) Actor {
	t.Helper()
	u := models.User{FullName: name, Email: email, Role: role}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return Actor{ID: u.ID, Email: u.Email, Name: u.FullName, Role: u.Role}
}

// book creates a booking starting hoursFromNow after the fixture clock.
func (f *fixture) book(t *testing.T, hoursFromNow, durationHours float64) *models.Booking {
	t.Helper()
	start := f.clock.Add(time.Duration(hoursFromNow * float64(time.Hour)))
	res, err := f.bookings.CreateBooking(context.Background(), f.parent, CreateBookingInput{
		TeacherProfileID: f.profile.ID,
		StartTime:        start,
		EndTime:          start.Add(time.Duration(durationHours * float64(time.Hour))),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return res.Booking
}

func (f *fixture) setStatus(t *testing.T, id uuid.UUID, status models.BookingStatus, payment models.PaymentStatus) {
	t.Helper()
	err := f.db.Model(&models.Booking{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "payment_status": payment}).Error
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.Booking {
	t.Helper()
	var b models.Booking
	if err := f.db.First(&b, "id = ?", id).Error; err != nil {
		t.Fatalf("reload booking: %v", err)
	}
	return b
}

func assertErrorAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %v", target, err)
	}
	return target
}
