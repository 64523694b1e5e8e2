package services

import (
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
)

func at(hour, minute int) time.Time {
	return time.Date(2030, time.March, 4, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"identical", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"partial", at(10, 0), at(11, 0), at(10, 30), at(11, 30), true},
		{"contained", at(10, 0), at(12, 0), at(10, 30), at(11, 0), true},
		{"back to back", at(10, 0), at(11, 0), at(11, 0), at(12, 0), false},
		{"before", at(8, 0), at(9, 0), at(10, 0), at(11, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Errorf("Overlaps is not symmetric")
			}
		})
	}
}

func TestConflictsWithExcludesSelf(t *testing.T) {
	self := uuid.New()
	confirmed := []Interval{{BookingID: self, Start: at(10, 0), End: at(11, 0)}}

	if !ConflictsWith(at(10, 30), at(11, 30), confirmed, nil) {
		t.Error("expected conflict without exclusion")
	}
	if ConflictsWith(at(10, 0), at(11, 0), confirmed, &self) {
		t.Error("booking conflicted with itself")
	}
}

func TestCalculatePrice(t *testing.T) {
	if got := CalculatePrice(5000, at(10, 0), at(11, 30)); got != 7500 {
		t.Errorf("90 minutes at 5000/h = %d, want 7500", got)
	}
	if got := CalculatePrice(4999, at(10, 0), at(10, 20)); got != 1666 {
		t.Errorf("20 minutes at 4999/h = %d, want 1666", got)
	}
}

func TestDollarsToCents(t *testing.T) {
	if got := DollarsToCents(49.99); got != 4999 {
		t.Errorf("DollarsToCents(49.99) = %d", got)
	}
}

func TestCommissionSplit(t *testing.T) {
	policy := NewCommissionPolicy(0.15)
	cases := []struct{ price, fee, earnings int64 }{
		{7500, 1125, 6375},
		{333, 50, 283},
		{0, 0, 0},
	}
	for _, tc := range cases {
		fee, earnings := policy.Split(tc.price)
		if fee != tc.fee || earnings != tc.earnings {
			t.Errorf("Split(%d) = %d/%d, want %d/%d", tc.price, fee, earnings, tc.fee, tc.earnings)
		}
		if fee+earnings != tc.price {
			t.Errorf("Split(%d) does not add up", tc.price)
		}
	}
}

func TestResolveParty(t *testing.T) {
	parent, teacher, other := uuid.New(), uuid.New(), uuid.New()
	if ResolveParty(parent, parent, teacher) != PartyParent {
		t.Error("parent not resolved")
	}
	if ResolveParty(teacher, parent, teacher) != PartyTeacher {
		t.Error("teacher not resolved")
	}
	if ResolveParty(other, parent, teacher) != PartyNone {
		t.Error("outsider resolved as a party")
	}
}

func TestDecideTransition(t *testing.T) {
	now := at(8, 0)
	base := TransitionInput{
		PaymentStatus: models.PaymentPaid,
		StartTime:     now.Add(48 * time.Hour),
		EndTime:       now.Add(49 * time.Hour),
		Now:           now,
		NoticePeriod:  24 * time.Hour,
	}

	t.Run("teacher confirms", func(t *testing.T) {
		in := base
		in.From, in.To, in.Party = models.BookingPending, models.BookingConfirmed, PartyTeacher
		rule, err := DecideTransition(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rule.Effects) != 1 || rule.Effects[0] != EffectVerifyNoOverlap {
			t.Errorf("effects = %v", rule.Effects)
		}
	})

	t.Run("outsider", func(t *testing.T) {
		in := base
		in.From, in.To, in.Party = models.BookingPending, models.BookingCancelled, PartyNone
		_, err := DecideTransition(in)
		assertErrorAs[*PermissionError](t, err)
	})

	t.Run("parent cannot confirm", func(t *testing.T) {
		in := base
		in.From, in.To, in.Party = models.BookingPending, models.BookingConfirmed, PartyParent
		_, err := DecideTransition(in)
		assertErrorAs[*PermissionError](t, err)
	})

	t.Run("pending straight to completed", func(t *testing.T) {
		in := base
		in.From, in.To, in.Party = models.BookingPending, models.BookingCompleted, PartyTeacher
		_, err := DecideTransition(in)
		assertErrorAs[*InvalidTransitionError](t, err)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		for _, from := range []models.BookingStatus{models.BookingCancelled, models.BookingCompleted} {
			in := base
			in.From, in.To, in.Party = from, models.BookingConfirmed, PartyTeacher
			_, err := DecideTransition(in)
			assertErrorAs[*InvalidTransitionError](t, err)
		}
	})

	t.Run("parent cancels inside notice", func(t *testing.T) {
		in := base
		in.From, in.To, in.Party = models.BookingConfirmed, models.BookingCancelled, PartyParent
		in.StartTime = now.Add(10 * time.Hour)
		_, err := DecideTransition(in)
		assertErrorAs[*PolicyError](t, err)
	})

	t.Run("unpaid booking ignores notice", func(t *testing.T) {
		in := base
		in.From, in.To, in.Party = models.BookingConfirmed, models.BookingCancelled, PartyParent
		in.StartTime = now.Add(time.Hour)
		in.PaymentStatus = models.PaymentPending
		if _, err := DecideTransition(in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("teacher cancels inside notice", func(t *testing.T) {
		in := base
		in.From, in.To, in.Party = models.BookingConfirmed, models.BookingCancelled, PartyTeacher
		in.StartTime = now.Add(time.Hour)
		if _, err := DecideTransition(in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("complete before end", func(t *testing.T) {
		in := base
		in.From, in.To, in.Party = models.BookingConfirmed, models.BookingCompleted, PartyTeacher
		_, err := DecideTransition(in)
		assertErrorAs[*ValidationError](t, err)
	})
}

func TestResolvePaymentRelease(t *testing.T) {
	id := "pi_1"
	if ResolvePaymentRelease(models.PaymentPaid, &id) != ReleaseRefund {
		t.Error("paid booking should be refunded")
	}
	if ResolvePaymentRelease(models.PaymentPending, &id) != ReleaseCancelAuthorization {
		t.Error("pending authorization should be cancelled")
	}
	if ResolvePaymentRelease(models.PaymentPending, nil) != ReleaseNothing {
		t.Error("nothing to release without an authorization")
	}
}
