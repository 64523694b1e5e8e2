package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/payments"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingOptions struct {
	CommissionRate     float64
	CancellationNotice time.Duration
	Currency           string
}

type BookingService struct {
	db         *gorm.DB
	payments   payments.Coordinator
	notifier   Notifier
	publisher  Publisher
	commission CommissionPolicy
	notice     time.Duration
	currency   string
	now        func() time.Time
}

func NewBookingService(db *gorm.DB, coordinator payments.Coordinator, notifier Notifier, publisher Publisher, opts BookingOptions) *BookingService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if opts.CancellationNotice <= 0 {
		opts.CancellationNotice = 24 * time.Hour
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &BookingService{
		db:         db,
		payments:   coordinator,
		notifier:   notifier,
		publisher:  publisher,
		commission: NewCommissionPolicy(opts.CommissionRate),
		notice:     opts.CancellationNotice,
		currency:   opts.Currency,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the service clock. Intended for tests.
func (s *BookingService) SetClock(now func() time.Time) { s.now = now }

type CreateBookingInput struct {
	TeacherProfileID uuid.UUID
	SubjectID        *uuid.UUID
	StartTime        time.Time
	EndTime          time.Time
	Notes            *string
}

type BookingResult struct {
	Booking *models.Booking
	// ClientSecret completes the payment on the payer's side. Empty when authorization failed.
	ClientSecret string
}

// HasConflict reports whether [start, end) overlaps a confirmed booking of the teacher.
func (s *BookingService) HasConflict(ctx context.Context, teacherProfileID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (bool, error) {
	return hasConflict(s.db.WithContext(ctx), teacherProfileID, start.UTC(), end.UTC(), excludeBookingID)
}

func hasConflict(tx *gorm.DB, teacherProfileID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (bool, error) {
	q := tx.Model(&models.Booking{}).
		Where("teacher_profile_id = ? AND status = ?", teacherProfileID, models.BookingConfirmed).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeBookingID != nil {
		q = q.Where("id <> ?", *excludeBookingID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("conflict check: %w", err)
	}
	return count > 0, nil
}

// CreateBooking reserves a pending booking for the parent and requests a payment
// authorization for its price. When authorization fails the booking stays pending
// without an authorization id and an ExternalServiceError is returned alongside it.
func (s *BookingService) CreateBooking(ctx context.Context, actor Actor, in CreateBookingInput) (*BookingResult, error) {
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	if !start.Before(end) {
		return nil, newValidationError("start time must be before end time")
	}
	if !start.After(s.now()) {
		return nil, newValidationError("bookings must start in the future")
	}

	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var teacher models.TeacherProfile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&teacher, "id = ?", in.TeacherProfileID).Error; err != nil {
			if database.IsNotFound(err) {
				return newNotFoundError("teacher not found")
			}
			return err
		}
		if teacher.UserID == actor.ID {
			return newValidationError("you cannot book a session with yourself")
		}
		if !teacher.IsAvailableForNewStudents {
			return newPolicyError("this teacher is not accepting new students")
		}
		if in.SubjectID != nil {
			var subject models.Subject
			if err := tx.First(&subject, "id = ?", *in.SubjectID).Error; err != nil {
				if database.IsNotFound(err) {
					return newNotFoundError("subject not found")
				}
				return err
			}
		}

		conflict, err := hasConflict(tx, teacher.ID, start, end, nil)
		if err != nil {
			return err
		}
		if conflict {
			return newConflictError("this time slot is already booked")
		}

		price := CalculatePrice(teacher.HourlyRate, start, end)
		fee, earnings := s.commission.Split(price)
		booking = models.Booking{
			TeacherProfileID: teacher.ID,
			ParentID:         actor.ID,
			SubjectID:        in.SubjectID,
			StartTime:        start,
			EndTime:          end,
			Status:           models.BookingPending,
			PaymentStatus:    models.PaymentPending,
			Price:            price,
			PlatformFee:      fee,
			TeacherEarnings:  earnings,
			Currency:         s.currency,
			Notes:            in.Notes,
			PaymentProvider:  s.payments.Name(),
		}
		if err := tx.Omit(clause.Associations).Create(&booking).Error; err != nil {
			return err
		}
		return recordEvent(tx, booking.ID, actor.ID, "", models.BookingPending, datatypes.JSONMap{"price": price})
	})
	if err != nil {
		return nil, err
	}

	result := &BookingResult{Booking: &booking}
	secret, err := s.authorize(ctx, actor, &booking)
	if err != nil {
		return result, err
	}
	result.ClientSecret = secret

	s.notifyParties(ctx, &booking, "New booking request",
		"<h1>New Booking Request</h1><p>A session has been requested for %s.</p>")
	return result, nil
}

// RetryPaymentAuthorization requests a new authorization for a pending booking whose
// earlier authorization attempt failed.
func (s *BookingService) RetryPaymentAuthorization(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BookingResult, error) {
	booking, err := s.findBooking(s.db.WithContext(ctx), bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ParentID != actor.ID {
		return nil, newPermissionError("only the parent who booked can pay for this booking")
	}
	if booking.Status != models.BookingPending {
		return nil, newPolicyError("only pending bookings can be paid")
	}
	if booking.PaymentAuthorizationID != nil {
		return nil, newConflictError("this booking already has a payment authorization")
	}

	secret, err := s.authorize(ctx, actor, booking)
	if err != nil {
		return &BookingResult{Booking: booking}, err
	}
	return &BookingResult{Booking: booking, ClientSecret: secret}, nil
}

func (s *BookingService) authorize(ctx context.Context, actor Actor, booking *models.Booking) (string, error) {
	auth, err := s.payments.Authorize(ctx, payments.AuthorizationRequest{
		Amount:      booking.Price,
		Currency:    booking.Currency,
		BookingID:   booking.ID,
		PayerEmail:  actor.Email,
		PayerName:   actor.Name,
		Description: fmt.Sprintf("Tutoring session %s", booking.StartTime.Format(time.RFC1123)),
	})
	if err != nil {
		log.Printf("🔥 Payment authorization failed for booking %s: %v", booking.ID, err)
		reason := err.Error()
		failed := models.Payment{
			BookingID:     booking.ID,
			Provider:      s.payments.Name(),
			Amount:        booking.Price,
			Currency:      booking.Currency,
			Status:        models.PaymentAttemptFailed,
			FailureReason: &reason,
		}
		if dbErr := s.db.WithContext(ctx).Create(&failed).Error; dbErr != nil {
			log.Printf("⚠️ Could not record failed payment attempt for booking %s: %v", booking.ID, dbErr)
		}
		return "", &ExternalServiceError{Service: "payment authorization", Err: err}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ? AND payment_authorization_id IS NULL", booking.ID, models.BookingPending).
			Update("payment_authorization_id", auth.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return newConflictError("booking changed while the payment was being authorized")
		}
		payment := models.Payment{
			BookingID:       booking.ID,
			Provider:        s.payments.Name(),
			AuthorizationID: &auth.ID,
			Amount:          booking.Price,
			Currency:        booking.Currency,
			Status:          models.PaymentAttemptPending,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		if cancelErr := s.payments.CancelAuthorization(ctx, auth.ID); cancelErr != nil {
			log.Printf("🔥 Orphaned payment authorization %s for booking %s: %v", auth.ID, booking.ID, cancelErr)
		}
		return "", err
	}

	booking.PaymentAuthorizationID = &auth.ID
	return auth.ClientSecret, nil
}

// UpdateStatus applies a status change requested by actor. Payment side effects run
// inside the booking's transaction so a failed refund or cancellation leaves the
// status unchanged.
func (s *BookingService) UpdateStatus(ctx context.Context, actor Actor, bookingID uuid.UUID, target models.BookingStatus, reason *string) (*models.Booking, error) {
	if !target.Valid() {
		return nil, newValidationError("unknown booking status %q", target)
	}

	var from models.BookingStatus
	meta := datatypes.JSONMap{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", bookingID).Error; err != nil {
			if database.IsNotFound(err) {
				return newNotFoundError("booking not found")
			}
			return err
		}
		var teacher models.TeacherProfile
		if err := tx.First(&teacher, "id = ?", booking.TeacherProfileID).Error; err != nil {
			return fmt.Errorf("load teacher profile: %w", err)
		}
		from = booking.Status

		rule, err := DecideTransition(TransitionInput{
			From:          booking.Status,
			To:            target,
			Party:         ResolveParty(actor.ID, booking.ParentID, teacher.UserID),
			PaymentStatus: booking.PaymentStatus,
			StartTime:     booking.StartTime,
			EndTime:       booking.EndTime,
			Now:           s.now(),
			NoticePeriod:  s.notice,
		})
		if err != nil {
			return err
		}

		updates := map[string]any{
			"status":  target,
			"version": booking.Version + 1,
		}
		if target == models.BookingCancelled {
			updates["cancelled_by"] = actor.ID
			if reason != nil {
				updates["cancellation_reason"] = *reason
			}
		}
		res := tx.Model(&models.Booking{}).Where("id = ? AND version = ?", booking.ID, booking.Version).Updates(updates)
		if res.Error != nil {
			if database.IsOverlapViolation(res.Error) {
				return newConflictError("this time slot is already booked")
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return newConflictError("booking was modified by another request, please retry")
		}

		for _, effect := range rule.Effects {
			if err := s.applyEffect(ctx, tx, effect, &booking, &teacher, meta); err != nil {
				return err
			}
		}
		if reason != nil {
			meta["reason"] = *reason
		}
		return recordEvent(tx, booking.ID, actor.ID, from, target, meta)
	})
	if err != nil {
		logOrphanedRefund(bookingID, meta, err)
		return nil, err
	}

	booking, err := s.findBooking(s.db.WithContext(ctx), bookingID)
	if err != nil {
		return nil, err
	}
	s.announceStatusChange(ctx, booking, from)
	return booking, nil
}

func (s *BookingService) applyEffect(ctx context.Context, tx *gorm.DB, effect SideEffect, booking *models.Booking, teacher *models.TeacherProfile, meta datatypes.JSONMap) error {
	switch effect {
	case EffectVerifyNoOverlap:
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(teacher, "id = ?", teacher.ID).Error; err != nil {
			return err
		}
		conflict, err := hasConflict(tx, booking.TeacherProfileID, booking.StartTime, booking.EndTime, &booking.ID)
		if err != nil {
			return err
		}
		if conflict {
			return newConflictError("another confirmed booking overlaps this time slot")
		}

	case EffectReleasePayment:
		switch ResolvePaymentRelease(booking.PaymentStatus, booking.PaymentAuthorizationID) {
		case ReleaseRefund:
			refundID, err := s.payments.Refund(ctx, *booking.PaymentAuthorizationID, 0)
			if err != nil {
				return &ExternalServiceError{Service: "payment refund", Err: err}
			}
			meta["refund_id"] = refundID
			if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Updates(map[string]any{
				"payment_status": models.PaymentRefunded,
				"refund_id":      refundID,
			}).Error; err != nil {
				return err
			}
			if err := updatePaymentAttempt(tx, *booking.PaymentAuthorizationID, models.PaymentAttemptRefunded, &refundID); err != nil {
				return err
			}
			meta["payment"] = "refunded"
		case ReleaseCancelAuthorization:
			if err := s.payments.CancelAuthorization(ctx, *booking.PaymentAuthorizationID); err != nil {
				return &ExternalServiceError{Service: "payment cancellation", Err: err}
			}
			if err := updatePaymentAttempt(tx, *booking.PaymentAuthorizationID, models.PaymentAttemptCancelled, nil); err != nil {
				return err
			}
			meta["payment"] = "authorization_cancelled"
		}

	case EffectCreditEarnings:
		if booking.PaymentStatus != models.PaymentPaid {
			return nil
		}
		err := tx.Model(&models.TeacherProfile{}).Where("id = ?", booking.TeacherProfileID).
			Update("current_balance", gorm.Expr("current_balance + ?", booking.TeacherEarnings)).Error
		if err != nil {
			return err
		}
		meta["credited"] = booking.TeacherEarnings
	}
	return nil
}

const expiredReason = "not confirmed before the session started"

// ExpireStalePending cancels pending bookings whose start time has passed and
// releases their payment authorizations. It returns how many were expired.
func (s *BookingService) ExpireStalePending(ctx context.Context) (int, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("status = ? AND start_time <= ?", models.BookingPending, s.now()).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		ok, err := s.expire(ctx, id)
		if err != nil {
			log.Printf("⚠️ Could not expire booking %s: %v", id, err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *BookingService) expire(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	changed := false
	meta := datatypes.JSONMap{"reason": expiredReason}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", bookingID).Error; err != nil {
			return err
		}
		if booking.Status != models.BookingPending || booking.StartTime.After(s.now()) {
			return nil
		}

		res := tx.Model(&models.Booking{}).Where("id = ? AND version = ?", booking.ID, booking.Version).Updates(map[string]any{
			"status":              models.BookingCancelled,
			"cancellation_reason": expiredReason,
			"version":             booking.Version + 1,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := s.applyEffect(ctx, tx, EffectReleasePayment, &booking, nil, meta); err != nil {
			return err
		}
		changed = true
		return recordEvent(tx, booking.ID, uuid.Nil, models.BookingPending, models.BookingCancelled, meta)
	})
	if err != nil {
		logOrphanedRefund(bookingID, meta, err)
		return false, err
	}
	if !changed {
		return false, nil
	}

	if booking, err := s.findBooking(s.db.WithContext(ctx), bookingID); err == nil {
		s.announceStatusChange(ctx, booking, models.BookingPending)
	}
	return true, nil
}

// ReconcilePayment asks the payment processor for the authorization's state and marks
// the booking paid once the payment has succeeded.
func (s *BookingService) ReconcilePayment(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentAuthorizationID == nil {
		return nil, newPolicyError("this booking has no payment authorization")
	}
	if booking.PaymentStatus != models.PaymentPending {
		return booking, nil
	}
	return s.ReconcileByAuthorization(ctx, *booking.PaymentAuthorizationID)
}

// ReconcileByAuthorization is ReconcilePayment keyed by the processor's id, used by
// provider notifications.
func (s *BookingService) ReconcileByAuthorization(ctx context.Context, authorizationID string) (*models.Booking, error) {
	status, err := s.payments.Status(ctx, authorizationID)
	if err != nil {
		return nil, &ExternalServiceError{Service: "payment status", Err: err}
	}
	if status != payments.StatusSucceeded {
		return s.findBookingByAuthorization(s.db.WithContext(ctx), authorizationID)
	}
	return s.MarkPaidByAuthorization(ctx, authorizationID)
}

// MarkPaidByAuthorization records a successful payment. Payments that land on an
// already cancelled booking are refunded immediately.
func (s *BookingService) MarkPaidByAuthorization(ctx context.Context, authorizationID string) (*models.Booking, error) {
	var bookingID uuid.UUID
	issued := datatypes.JSONMap{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payment_authorization_id = ?", authorizationID).First(&booking).Error
		if err != nil {
			if database.IsNotFound(err) {
				return newNotFoundError("no booking for payment %s", authorizationID)
			}
			return err
		}
		if booking.PaymentStatus != models.PaymentPending {
			return nil
		}
		bookingID = booking.ID

		if booking.Status == models.BookingCancelled {
			refundID, err := s.payments.Refund(ctx, authorizationID, 0)
			if err != nil {
				return &ExternalServiceError{Service: "payment refund", Err: err}
			}
			issued["refund_id"] = refundID
			if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Updates(map[string]any{
				"payment_status": models.PaymentRefunded,
				"refund_id":      refundID,
			}).Error; err != nil {
				return err
			}
			log.Printf("⚠️ Payment %s arrived for cancelled booking %s, refunded as %s", authorizationID, booking.ID, refundID)
			return updatePaymentAttempt(tx, authorizationID, models.PaymentAttemptRefunded, &refundID)
		}

		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("payment_status", models.PaymentPaid).Error; err != nil {
			return err
		}
		if err := updatePaymentAttempt(tx, authorizationID, models.PaymentAttemptSucceeded, nil); err != nil {
			return err
		}
		return recordEvent(tx, booking.ID, booking.ParentID, booking.Status, booking.Status, datatypes.JSONMap{"payment": "paid"})
	})
	if err != nil {
		logOrphanedRefund(bookingID, issued, err)
		return nil, err
	}
	return s.findBookingByAuthorization(s.db.WithContext(ctx), authorizationID)
}

// GetBooking returns a booking visible to actor, who must be one of its parties.
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.findBooking(s.db.WithContext(ctx), bookingID)
	if err != nil {
		return nil, err
	}
	if ResolveParty(actor.ID, booking.ParentID, booking.TeacherProfile.UserID) == PartyNone {
		return nil, newPermissionError("you are not a party to this booking")
	}
	return booking, nil
}

func (s *BookingService) ListParentBookings(ctx context.Context, actor Actor, status *models.BookingStatus) ([]models.Booking, error) {
	q := s.db.WithContext(ctx).
		Preload("TeacherProfile.User").
		Preload("Subject").
		Where("parent_id = ?", actor.ID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var bookings []models.Booking
	if err := q.Order("start_time DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *BookingService) ListTeacherBookings(ctx context.Context, actor Actor, status *models.BookingStatus) ([]models.Booking, error) {
	var teacher models.TeacherProfile
	if err := s.db.WithContext(ctx).First(&teacher, "user_id = ?", actor.ID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("teacher profile not found")
		}
		return nil, err
	}

	q := s.db.WithContext(ctx).
		Preload("Parent").
		Preload("Subject").
		Where("teacher_profile_id = ?", teacher.ID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var bookings []models.Booking
	if err := q.Order("start_time DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

type BillingBreakdown struct {
	BookingID       uuid.UUID `json:"booking_id"`
	Price           int64     `json:"price"`
	PlatformFee     int64     `json:"platform_fee"`
	TeacherEarnings int64     `json:"teacher_earnings"`
	CommissionRate  string    `json:"commission_rate"`
	Currency        string    `json:"currency"`
}

func (s *BookingService) Billing(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BillingBreakdown, error) {
	booking, err := s.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	return &BillingBreakdown{
		BookingID:       booking.ID,
		Price:           booking.Price,
		PlatformFee:     booking.PlatformFee,
		TeacherEarnings: booking.TeacherEarnings,
		CommissionRate:  s.commission.Rate.String(),
		Currency:        booking.Currency,
	}, nil
}

func (s *BookingService) ListEvents(ctx context.Context, actor Actor, bookingID uuid.UUID) ([]models.BookingEvent, error) {
	if _, err := s.GetBooking(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	var events []models.BookingEvent
	err := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at ASC").Find(&events).Error
	return events, err
}

func (s *BookingService) findBooking(db *gorm.DB, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := db.Preload("TeacherProfile.User").Preload("Parent").Preload("Subject").First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("booking not found")
		}
		return nil, err
	}
	return &booking, nil
}

func (s *BookingService) findBookingByAuthorization(db *gorm.DB, authorizationID string) (*models.Booking, error) {
	var booking models.Booking
	err := db.Preload("TeacherProfile.User").Preload("Parent").
		Where("payment_authorization_id = ?", authorizationID).First(&booking).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("no booking for payment %s", authorizationID)
		}
		return nil, err
	}
	return &booking, nil
}

func recordEvent(tx *gorm.DB, bookingID, actorID uuid.UUID, from, to models.BookingStatus, meta datatypes.JSONMap) error {
	event := models.BookingEvent{
		BookingID:  bookingID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		Metadata:   meta,
	}
	return tx.Create(&event).Error
}

func updatePaymentAttempt(tx *gorm.DB, authorizationID, status string, refundID *string) error {
	updates := map[string]any{"status": status}
	if refundID != nil {
		updates["refund_id"] = *refundID
	}
	return tx.Model(&models.Payment{}).Where("authorization_id = ?", authorizationID).Updates(updates).Error
}

// logOrphanedRefund reports a refund the processor already issued for a change that
// rolled back, so the money movement can be reconciled by hand.
func logOrphanedRefund(bookingID uuid.UUID, meta datatypes.JSONMap, cause error) {
	refundID, ok := meta["refund_id"].(string)
	if !ok || refundID == "" {
		return
	}
	log.Printf("🔥 Refund %s issued for booking %s but the status change rolled back: %v", refundID, bookingID, cause)
}

func (s *BookingService) announceStatusChange(ctx context.Context, booking *models.Booking, from models.BookingStatus) {
	payload := map[string]any{"booking_id": booking.ID, "from": from, "to": booking.Status}
	s.publisher.Publish(booking.ParentID, "booking.status", payload)
	s.publisher.Publish(booking.TeacherProfile.UserID, "booking.status", payload)

	subject := fmt.Sprintf("Booking %s", booking.Status)
	body := fmt.Sprintf("<h1>Booking %s</h1><p>The session on %%s is now %s.</p>", booking.Status, booking.Status)
	s.notifyParties(ctx, booking, subject, body)
}

// notifyParties emails both sides of a booking. bodyFormat takes the session start time.
func (s *BookingService) notifyParties(ctx context.Context, booking *models.Booking, subject, bodyFormat string) {
	if booking.Parent.ID == uuid.Nil || booking.TeacherProfile.User.ID == uuid.Nil {
		loaded, err := s.findBooking(s.db.WithContext(ctx), booking.ID)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("⚠️ Could not load booking %s for notification: %v", booking.ID, err)
			}
			return
		}
		booking = loaded
	}
	body := fmt.Sprintf(bodyFormat, booking.StartTime.Format(time.RFC1123))
	s.notifier.Notify(booking.Parent, subject, body)
	s.notifier.Notify(booking.TeacherProfile.User, subject, body)
}
