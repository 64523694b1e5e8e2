package services

import (
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and [bStart, bEnd)
// intersect. Intervals that only touch at an edge do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Interval is an existing booking's reserved time.
type Interval struct {
	BookingID uuid.UUID
	Start     time.Time
	End       time.Time
}

// ConflictsWith reports whether [start, end) overlaps any of the confirmed intervals,
// ignoring the booking named by exclude.
func ConflictsWith(start, end time.Time, confirmed []Interval, exclude *uuid.UUID) bool {
	for _, iv := range confirmed {
		if exclude != nil && iv.BookingID == *exclude {
			continue
		}
		if Overlaps(start, end, iv.Start, iv.End) {
			return true
		}
	}
	return false
}

var millisPerHour = decimal.NewFromInt(int64(time.Hour / time.Millisecond))

// CalculatePrice returns hourlyRate × duration in hours, rounded half-up to the
// nearest minor unit. Sub-millisecond durations are truncated.
func CalculatePrice(hourlyRate int64, start, end time.Time) int64 {
	ms := decimal.NewFromInt(end.Sub(start).Milliseconds())
	return decimal.NewFromInt(hourlyRate).Mul(ms).Div(millisPerHour).Round(0).IntPart()
}

// DollarsToCents converts a major-unit amount such as 49.99 to 4999.
func DollarsToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CommissionPolicy splits a booking price between the platform and the teacher.
type CommissionPolicy struct {
	Rate decimal.Decimal
}

func NewCommissionPolicy(rate float64) CommissionPolicy {
	return CommissionPolicy{Rate: decimal.NewFromFloat(rate)}
}

// Split returns the platform fee (rate × price, rounded half-up) and the teacher's
// earnings (price − fee).
func (p CommissionPolicy) Split(price int64) (fee, earnings int64) {
	fee = decimal.NewFromInt(price).Mul(p.Rate).Round(0).IntPart()
	return fee, price - fee
}

// Party is the actor's relation to a booking.
type Party string

const (
	PartyNone    Party = ""
	PartyTeacher Party = "teacher"
	PartyParent  Party = "parent"
)

// ResolveParty maps an actor onto a booking. The teacher relation wins when the
// same user is on both sides.
func ResolveParty(actorID, parentID, teacherUserID uuid.UUID) Party {
	switch actorID {
	case teacherUserID:
		return PartyTeacher
	case parentID:
		return PartyParent
	default:
		return PartyNone
	}
}

// Guard is an extra condition evaluated before a transition is allowed.
type Guard string

const (
	GuardNone Guard = ""
	// GuardNoticePeriod rejects cancelling a paid booking inside the notice period.
	GuardNoticePeriod Guard = "notice_period"
	// GuardSessionEnded rejects completing a session that has not ended yet.
	GuardSessionEnded Guard = "session_ended"
)

type SideEffect string

const (
	// EffectVerifyNoOverlap re-checks the interval against confirmed bookings.
	EffectVerifyNoOverlap SideEffect = "verify_no_overlap"
	// EffectReleasePayment refunds a paid booking or cancels an outstanding authorization.
	EffectReleasePayment SideEffect = "release_payment"
	// EffectCreditEarnings adds the teacher's earnings to their balance for paid bookings.
	EffectCreditEarnings SideEffect = "credit_earnings"
)

type TransitionRule struct {
	From    models.BookingStatus
	To      models.BookingStatus
	Party   Party
	Guard   Guard
	Effects []SideEffect
}

// TransitionTable lists every legal status change. Pairs not listed are rejected.
var TransitionTable = []TransitionRule{
	{From: models.BookingPending, To: models.BookingConfirmed, Party: PartyTeacher, Effects: []SideEffect{EffectVerifyNoOverlap}},
	{From: models.BookingPending, To: models.BookingCancelled, Party: PartyParent, Effects: []SideEffect{EffectReleasePayment}},
	{From: models.BookingConfirmed, To: models.BookingCancelled, Party: PartyTeacher, Effects: []SideEffect{EffectReleasePayment}},
	{From: models.BookingConfirmed, To: models.BookingCancelled, Party: PartyParent, Guard: GuardNoticePeriod, Effects: []SideEffect{EffectReleasePayment}},
	{From: models.BookingConfirmed, To: models.BookingCompleted, Party: PartyTeacher, Guard: GuardSessionEnded, Effects: []SideEffect{EffectCreditEarnings}},
}

type TransitionInput struct {
	From          models.BookingStatus
	To            models.BookingStatus
	Party         Party
	PaymentStatus models.PaymentStatus
	StartTime     time.Time
	EndTime       time.Time
	Now           time.Time
	NoticePeriod  time.Duration
}

// DecideTransition applies the transition table to in and returns the matching rule.
func DecideTransition(in TransitionInput) (TransitionRule, error) {
	if in.Party == PartyNone {
		return TransitionRule{}, newPermissionError("you are not a party to this booking")
	}
	if in.Party == PartyParent && in.To != models.BookingCancelled {
		return TransitionRule{}, newPermissionError("parents can only cancel bookings")
	}

	rule, ok := findRule(in.From, in.To, in.Party)
	if !ok {
		return TransitionRule{}, &InvalidTransitionError{From: string(in.From), To: string(in.To)}
	}
	if err := checkGuard(rule.Guard, in); err != nil {
		return TransitionRule{}, err
	}
	return rule, nil
}

func findRule(from, to models.BookingStatus, party Party) (TransitionRule, bool) {
	for _, r := range TransitionTable {
		if r.From == from && r.To == to && r.Party == party {
			return r, true
		}
	}
	return TransitionRule{}, false
}

func checkGuard(g Guard, in TransitionInput) error {
	switch g {
	case GuardNoticePeriod:
		if in.PaymentStatus == models.PaymentPaid && in.StartTime.Sub(in.Now) < in.NoticePeriod {
			return newPolicyError("paid bookings cannot be cancelled less than %d hours before the session", int(in.NoticePeriod.Hours()))
		}
	case GuardSessionEnded:
		if in.Now.Before(in.EndTime) {
			return newValidationError("cannot mark a session as completed before it has ended")
		}
	}
	return nil
}

// PaymentRelease is the concrete action behind EffectReleasePayment.
type PaymentRelease int

const (
	ReleaseNothing PaymentRelease = iota
	ReleaseRefund
	ReleaseCancelAuthorization
)

func ResolvePaymentRelease(status models.PaymentStatus, authorizationID *string) PaymentRelease {
	hasAuthorization := authorizationID != nil && *authorizationID != ""
	switch {
	case status == models.PaymentPaid && hasAuthorization:
		return ReleaseRefund
	case status == models.PaymentPending && hasAuthorization:
		return ReleaseCancelAuthorization
	default:
		return ReleaseNothing
	}
}
