package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/payments"
	"github.com/google/uuid"
)

func TestCreateBookingPricesAndAuthorizes(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Add(48 * time.Hour)

	res, err := f.bookings.CreateBooking(context.Background(), f.parent, CreateBookingInput{
		TeacherProfileID: f.profile.ID,
		StartTime:        start,
		EndTime:          start.Add(90 * time.Minute),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	b := f.reload(t, res.Booking.ID)
	if b.Status != models.BookingPending || b.PaymentStatus != models.PaymentPending {
		t.Errorf("status = %s/%s", b.Status, b.PaymentStatus)
	}
	if b.Price != 7500 || b.PlatformFee != 1125 || b.TeacherEarnings != 6375 {
		t.Errorf("price breakdown = %d/%d/%d", b.Price, b.PlatformFee, b.TeacherEarnings)
	}
	if b.PaymentAuthorizationID == nil || *b.PaymentAuthorizationID != "pi_1" {
		t.Errorf("authorization id = %v", b.PaymentAuthorizationID)
	}
	if res.ClientSecret != "pi_1_secret" {
		t.Errorf("client secret = %q", res.ClientSecret)
	}
	if len(f.pay.authorized) != 1 || f.pay.authorized[0].Amount != 7500 {
		t.Errorf("authorized = %+v", f.pay.authorized)
	}

	var payment models.Payment
	if err := f.db.First(&payment, "booking_id = ?", b.ID).Error; err != nil {
		t.Fatalf("payment row: %v", err)
	}
	if payment.Status != models.PaymentAttemptPending {
		t.Errorf("payment status = %s", payment.Status)
	}

	var events int64
	f.db.Model(&models.BookingEvent{}).Where("booking_id = ?", b.ID).Count(&events)
	if events != 1 {
		t.Errorf("events = %d, want 1", events)
	}
}

func TestCreateBookingRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.clock.Add(48 * time.Hour)

	t.Run("end before start", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, f.parent, CreateBookingInput{
			TeacherProfileID: f.profile.ID, StartTime: start, EndTime: start.Add(-time.Hour),
		})
		assertErrorAs[*ValidationError](t, err)
	})

	t.Run("in the past", func(t *testing.T) {
		past := f.clock.Add(-2 * time.Hour)
		_, err := f.bookings.CreateBooking(ctx, f.parent, CreateBookingInput{
			TeacherProfileID: f.profile.ID, StartTime: past, EndTime: past.Add(time.Hour),
		})
		assertErrorAs[*ValidationError](t, err)
	})

	t.Run("unknown teacher", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, f.parent, CreateBookingInput{
			TeacherProfileID: uuid.New(), StartTime: start, EndTime: start.Add(time.Hour),
		})
		assertErrorAs[*NotFoundError](t, err)
	})

	t.Run("unknown subject", func(t *testing.T) {
		subject := uuid.New()
		_, err := f.bookings.CreateBooking(ctx, f.parent, CreateBookingInput{
			TeacherProfileID: f.profile.ID, SubjectID: &subject, StartTime: start, EndTime: start.Add(time.Hour),
		})
		assertErrorAs[*NotFoundError](t, err)
	})

	t.Run("self booking", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, f.teacher, CreateBookingInput{
			TeacherProfileID: f.profile.ID, StartTime: start, EndTime: start.Add(time.Hour),
		})
		assertErrorAs[*ValidationError](t, err)
	})

	t.Run("not accepting students", func(t *testing.T) {
		f.db.Model(&models.TeacherProfile{}).Where("id = ?", f.profile.ID).Update("is_available_for_new_students", false)
		defer f.db.Model(&models.TeacherProfile{}).Where("id = ?", f.profile.ID).Update("is_available_for_new_students", true)

		_, err := f.bookings.CreateBooking(ctx, f.parent, CreateBookingInput{
			TeacherProfileID: f.profile.ID, StartTime: start, EndTime: start.Add(time.Hour),
		})
		assertErrorAs[*PolicyError](t, err)
	})

	var count int64
	f.db.Model(&models.Booking{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected requests left %d bookings behind", count)
	}
}

func TestCreateBookingConflictsWithConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.book(t, 48, 1)
	if _, err := f.bookings.UpdateStatus(ctx, f.teacher, first.ID, models.BookingConfirmed, nil); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	start := first.StartTime.Add(30 * time.Minute)
	_, err := f.bookings.CreateBooking(ctx, f.parent, CreateBookingInput{
		TeacherProfileID: f.profile.ID, StartTime: start, EndTime: start.Add(time.Hour),
	})
	assertErrorAs[*ConflictError](t, err)

	// Touching intervals are allowed.
	if _, err := f.bookings.CreateBooking(ctx, f.parent, CreateBookingInput{
		TeacherProfileID: f.profile.ID, StartTime: first.EndTime, EndTime: first.EndTime.Add(time.Hour),
	}); err != nil {
		t.Fatalf("back-to-back booking rejected: %v", err)
	}
}

func TestCreateBookingAuthorizationFailure(t *testing.T) {
	f := newFixture(t)
	f.pay.authorizeErr = errors.New("card network down")

	start := f.clock.Add(48 * time.Hour)
	res, err := f.bookings.CreateBooking(context.Background(), f.parent, CreateBookingInput{
		TeacherProfileID: f.profile.ID, StartTime: start, EndTime: start.Add(time.Hour),
	})
	assertErrorAs[*ExternalServiceError](t, err)
	if res == nil || res.Booking == nil {
		t.Fatal("booking should be returned alongside the payment error")
	}

	b := f.reload(t, res.Booking.ID)
	if b.Status != models.BookingPending || b.PaymentAuthorizationID != nil {
		t.Errorf("booking = %s with authorization %v", b.Status, b.PaymentAuthorizationID)
	}

	var failed int64
	f.db.Model(&models.Payment{}).Where("booking_id = ? AND status = ?", b.ID, models.PaymentAttemptFailed).Count(&failed)
	if failed != 1 {
		t.Errorf("failed attempts = %d, want 1", failed)
	}

	f.pay.authorizeErr = nil
	retry, err := f.bookings.RetryPaymentAuthorization(context.Background(), f.parent, b.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retry.ClientSecret == "" {
		t.Error("retry returned no client secret")
	}
	if b := f.reload(t, b.ID); b.PaymentAuthorizationID == nil {
		t.Error("retry did not store the authorization")
	}

	_, err = f.bookings.RetryPaymentAuthorization(context.Background(), f.parent, b.ID)
	assertErrorAs[*ConflictError](t, err)
}

func TestConfirmRechecksOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, 48, 1)
	b := f.book(t, 48.5, 1)

	if _, err := f.bookings.UpdateStatus(ctx, f.teacher, a.ID, models.BookingConfirmed, nil); err != nil {
		t.Fatalf("confirm a: %v", err)
	}
	_, err := f.bookings.UpdateStatus(ctx, f.teacher, b.ID, models.BookingConfirmed, nil)
	assertErrorAs[*ConflictError](t, err)

	if got := f.reload(t, b.ID); got.Status != models.BookingPending {
		t.Errorf("b status = %s, want pending", got.Status)
	}
}

func TestUpdateStatusPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, 48, 1)

	_, err := f.bookings.UpdateStatus(ctx, f.outsider, b.ID, models.BookingCancelled, nil)
	assertErrorAs[*PermissionError](t, err)

	_, err = f.bookings.UpdateStatus(ctx, f.parent, b.ID, models.BookingConfirmed, nil)
	assertErrorAs[*PermissionError](t, err)

	_, err = f.bookings.UpdateStatus(ctx, f.teacher, b.ID, models.BookingCompleted, nil)
	assertErrorAs[*InvalidTransitionError](t, err)

	_, err = f.bookings.UpdateStatus(ctx, f.teacher, uuid.New(), models.BookingConfirmed, nil)
	assertErrorAs[*NotFoundError](t, err)

	_, err = f.bookings.UpdateStatus(ctx, f.teacher, b.ID, models.BookingStatus("archived"), nil)
	assertErrorAs[*ValidationError](t, err)
}

func TestParentCancelPendingCancelsAuthorization(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 2, 1)

	reason := "schedule changed"
	got, err := f.bookings.UpdateStatus(context.Background(), f.parent, b.ID, models.BookingCancelled, &reason)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.BookingCancelled || got.CancelledBy == nil || *got.CancelledBy != f.parent.ID {
		t.Errorf("cancelled booking = %+v", got)
	}
	if len(f.pay.cancelled) != 1 || f.pay.cancelled[0] != "pi_1" {
		t.Errorf("cancelled authorizations = %v", f.pay.cancelled)
	}
	if len(f.pay.refunded) != 0 {
		t.Errorf("unexpected refunds %v", f.pay.refunded)
	}
}

func TestParentCancelPaidRespectsNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	soon := f.book(t, 10, 1)
	f.setStatus(t, soon.ID, models.BookingConfirmed, models.PaymentPaid)
	_, err := f.bookings.UpdateStatus(ctx, f.parent, soon.ID, models.BookingCancelled, nil)
	assertErrorAs[*PolicyError](t, err)
	if got := f.reload(t, soon.ID); got.Status != models.BookingConfirmed {
		t.Errorf("status after refused cancel = %s", got.Status)
	}

	later := f.book(t, 48, 1)
	f.setStatus(t, later.ID, models.BookingConfirmed, models.PaymentPaid)
	got, err := f.bookings.UpdateStatus(ctx, f.parent, later.ID, models.BookingCancelled, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.PaymentStatus != models.PaymentRefunded || got.RefundID == nil || *got.RefundID != "re_pi_2" {
		t.Errorf("refund not recorded: %s %v", got.PaymentStatus, got.RefundID)
	}
}

func TestTeacherCancelPaidRefundsInFull(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	f.setStatus(t, b.ID, models.BookingConfirmed, models.PaymentPaid)

	got, err := f.bookings.UpdateStatus(context.Background(), f.teacher, b.ID, models.BookingCancelled, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.PaymentStatus != models.PaymentRefunded {
		t.Errorf("payment status = %s", got.PaymentStatus)
	}
}

func TestRefundFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 48, 1)
	f.setStatus(t, b.ID, models.BookingConfirmed, models.PaymentPaid)
	f.pay.refundErr = errors.New("processor unavailable")

	_, err := f.bookings.UpdateStatus(context.Background(), f.parent, b.ID, models.BookingCancelled, nil)
	assertErrorAs[*ExternalServiceError](t, err)

	got := f.reload(t, b.ID)
	if got.Status != models.BookingConfirmed || got.PaymentStatus != models.PaymentPaid {
		t.Errorf("booking changed despite failed refund: %s/%s", got.Status, got.PaymentStatus)
	}
}

func TestRolledBackCancelLogsIssuedRefund(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 48, 1)
	f.setStatus(t, b.ID, models.BookingConfirmed, models.PaymentPaid)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	// The event insert fails after the processor has already refunded.
	if err := f.db.Migrator().DropTable(&models.BookingEvent{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.bookings.UpdateStatus(context.Background(), f.parent, b.ID, models.BookingCancelled, nil); err == nil {
		t.Fatal("cancel succeeded without an events table")
	}

	if len(f.pay.refunded) != 1 {
		t.Fatalf("refunds = %v", f.pay.refunded)
	}
	if got := f.reload(t, b.ID); got.Status != models.BookingConfirmed || got.RefundID != nil {
		t.Errorf("booking committed: %s %v", got.Status, got.RefundID)
	}
	if !strings.Contains(logs.String(), "re_pi_1") || !strings.Contains(logs.String(), b.ID.String()) {
		t.Errorf("refund not logged for reconciliation: %q", logs.String())
	}
}

func TestCompleteCreditsTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, 2, 1)
	f.setStatus(t, b.ID, models.BookingConfirmed, models.PaymentPaid)

	_, err := f.bookings.UpdateStatus(ctx, f.teacher, b.ID, models.BookingCompleted, nil)
	assertErrorAs[*ValidationError](t, err)

	f.clock = b.EndTime.Add(time.Minute)
	got, err := f.bookings.UpdateStatus(ctx, f.teacher, b.ID, models.BookingCompleted, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != models.BookingCompleted {
		t.Errorf("status = %s", got.Status)
	}

	var profile models.TeacherProfile
	f.db.First(&profile, "id = ?", f.profile.ID)
	if profile.CurrentBalance != 4250 {
		t.Errorf("balance = %d, want 4250", profile.CurrentBalance)
	}

	events, err := f.bookings.ListEvents(ctx, f.parent, b.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[1].ToStatus != models.BookingCompleted {
		t.Errorf("events = %+v", events)
	}
}

func TestMarkPaidByAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, 48, 1)

	got, err := f.bookings.MarkPaidByAuthorization(ctx, *b.PaymentAuthorizationID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if got.PaymentStatus != models.PaymentPaid {
		t.Errorf("payment status = %s", got.PaymentStatus)
	}

	var payment models.Payment
	f.db.First(&payment, "authorization_id = ?", *b.PaymentAuthorizationID)
	if payment.Status != models.PaymentAttemptSucceeded {
		t.Errorf("payment attempt = %s", payment.Status)
	}

	_, err = f.bookings.MarkPaidByAuthorization(ctx, "pi_unknown")
	assertErrorAs[*NotFoundError](t, err)
}

func TestLatePaymentOnCancelledBookingIsRefunded(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 48, 1)
	f.setStatus(t, b.ID, models.BookingCancelled, models.PaymentPending)

	got, err := f.bookings.MarkPaidByAuthorization(context.Background(), *b.PaymentAuthorizationID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if got.PaymentStatus != models.PaymentRefunded {
		t.Errorf("payment status = %s, want refunded", got.PaymentStatus)
	}
}

func TestReconcilePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, 48, 1)

	got, err := f.bookings.ReconcilePayment(ctx, f.parent, b.ID)
	if err != nil {
		t.Fatalf("reconcile pending: %v", err)
	}
	if got.PaymentStatus != models.PaymentPending {
		t.Errorf("payment status = %s", got.PaymentStatus)
	}

	f.pay.status = payments.StatusSucceeded
	got, err = f.bookings.ReconcilePayment(ctx, f.parent, b.ID)
	if err != nil {
		t.Fatalf("reconcile succeeded: %v", err)
	}
	if got.PaymentStatus != models.PaymentPaid {
		t.Errorf("payment status = %s, want paid", got.PaymentStatus)
	}

	_, err = f.bookings.ReconcilePayment(ctx, f.outsider, b.ID)
	assertErrorAs[*PermissionError](t, err)
}

func TestBookingVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, 48, 1)

	if _, err := f.bookings.GetBooking(ctx, f.teacher, b.ID); err != nil {
		t.Errorf("teacher cannot see booking: %v", err)
	}
	_, err := f.bookings.GetBooking(ctx, f.outsider, b.ID)
	assertErrorAs[*PermissionError](t, err)

	billing, err := f.bookings.Billing(ctx, f.parent, b.ID)
	if err != nil {
		t.Fatalf("billing: %v", err)
	}
	if billing.Price != 5000 || billing.PlatformFee != 750 || billing.CommissionRate != "0.15" {
		t.Errorf("billing = %+v", billing)
	}

	mine, err := f.bookings.ListParentBookings(ctx, f.parent, nil)
	if err != nil || len(mine) != 1 {
		t.Fatalf("parent bookings = %d, %v", len(mine), err)
	}
	pending := models.BookingPending
	theirs, err := f.bookings.ListTeacherBookings(ctx, f.teacher, &pending)
	if err != nil || len(theirs) != 1 {
		t.Fatalf("teacher bookings = %d, %v", len(theirs), err)
	}
	if _, err := f.bookings.ListTeacherBookings(ctx, f.parent, nil); err == nil {
		t.Error("parent without a profile listed teacher bookings")
	}
}

func TestStatusChangeIsAnnounced(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 48, 1)
	f.notifier.sent = nil

	if _, err := f.bookings.UpdateStatus(context.Background(), f.teacher, b.ID, models.BookingConfirmed, nil); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(f.publisher.events) != 2 {
		t.Errorf("published %v", f.publisher.events)
	}
	if len(f.notifier.sent) != 2 {
		t.Errorf("notified %v", f.notifier.sent)
	}
}

func TestExpireStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := f.book(t, 2, 1)
	confirmed := f.book(t, 3, 1)
	future := f.book(t, 48, 1)
	if _, err := f.bookings.UpdateStatus(ctx, f.teacher, confirmed.ID, models.BookingConfirmed, nil); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	f.clock = f.clock.Add(4 * time.Hour)
	n, err := f.bookings.ExpireStalePending(ctx)
	if err != nil {
		t.Fatalf("ExpireStalePending: %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d bookings, want 1", n)
	}

	if got := f.reload(t, stale.ID); got.Status != models.BookingCancelled || got.CancellationReason == nil {
		t.Errorf("stale booking = %s", got.Status)
	}
	if got := f.reload(t, confirmed.ID); got.Status != models.BookingConfirmed {
		t.Errorf("confirmed booking = %s", got.Status)
	}
	if got := f.reload(t, future.ID); got.Status != models.BookingPending {
		t.Errorf("future booking = %s", got.Status)
	}
	if len(f.pay.cancelled) != 1 || f.pay.cancelled[0] != *stale.PaymentAuthorizationID {
		t.Errorf("cancelled authorizations = %v", f.pay.cancelled)
	}
}
