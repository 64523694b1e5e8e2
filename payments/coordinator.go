package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

var ErrNotConfigured = errors.New("payment provider is not configured")

type AuthorizationRequest struct {
	Amount      int64
	Currency    string
	BookingID   uuid.UUID
	PayerEmail  string
	PayerName   string
	Description string
}

type Authorization struct {
	ID string
	// ClientSecret is handed to the payer's client to complete payment
	// (Stripe client secret or Midtrans Snap token).
	ClientSecret string
}

// Coordinator is the boundary to the external payment processor. Amounts are in
// minor currency units.
type Coordinator interface {
	Name() string
	Authorize(ctx context.Context, req AuthorizationRequest) (*Authorization, error)
	CancelAuthorization(ctx context.Context, authorizationID string) error
	// Refund returns the processor's refund id. An amount of 0 refunds in full.
	Refund(ctx context.Context, authorizationID string, amount int64) (string, error)
	Status(ctx context.Context, authorizationID string) (Status, error)
}

type timeoutCoordinator struct {
	next    Coordinator
	timeout time.Duration
}

// WithTimeout bounds every call to next by timeout.
func WithTimeout(next Coordinator, timeout time.Duration) Coordinator {
	if timeout <= 0 {
		return next
	}
	return &timeoutCoordinator{next: next, timeout: timeout}
}

func (t *timeoutCoordinator) Name() string { return t.next.Name() }

func (t *timeoutCoordinator) Authorize(ctx context.Context, req AuthorizationRequest) (*Authorization, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return runWithContext(ctx, func() (*Authorization, error) {
		return t.next.Authorize(ctx, req)
	})
}

func (t *timeoutCoordinator) CancelAuthorization(ctx context.Context, authorizationID string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	_, err := runWithContext(ctx, func() (struct{}, error) {
		return struct{}{}, t.next.CancelAuthorization(ctx, authorizationID)
	})
	return err
}

func (t *timeoutCoordinator) Refund(ctx context.Context, authorizationID string, amount int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return runWithContext(ctx, func() (string, error) {
		return t.next.Refund(ctx, authorizationID, amount)
	})
}

func (t *timeoutCoordinator) Status(ctx context.Context, authorizationID string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return runWithContext(ctx, func() (Status, error) {
		return t.next.Status(ctx, authorizationID)
	})
}

// runWithContext returns as soon as ctx is done even if fn ignores ctx. fn keeps
// running in the background; its result is discarded.
func runWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
