package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeCoordinator struct {
	api      *client.API
	currency string
}

func NewStripeCoordinator(secretKey, currency string) (*StripeCoordinator, error) {
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	return &StripeCoordinator{
		api:      client.New(secretKey, nil),
		currency: currency,
	}, nil
}

func (s *StripeCoordinator) Name() string { return "stripe" }

func (s *StripeCoordinator) Authorize(ctx context.Context, req AuthorizationRequest) (*Authorization, error) {
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(req.Amount),
		Currency:     stripe.String(currency),
		Description:  stripe.String(req.Description),
		ReceiptEmail: stripe.String(req.PayerEmail),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.BookingID.String())

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return &Authorization{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *StripeCoordinator) CancelAuthorization(ctx context.Context, authorizationID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := s.api.PaymentIntents.Cancel(authorizationID, params); err != nil {
		return fmt.Errorf("stripe: cancel payment intent %s: %w", authorizationID, err)
	}
	return nil
}

func (s *StripeCoordinator) Refund(ctx context.Context, authorizationID string, amount int64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(authorizationID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}
	params.Context = ctx

	r, err := s.api.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: refund payment intent %s: %w", authorizationID, err)
	}
	return r.ID, nil
}

func (s *StripeCoordinator) Status(ctx context.Context, authorizationID string) (Status, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(authorizationID, params)
	if err != nil {
		return "", fmt.Errorf("stripe: get payment intent %s: %w", authorizationID, err)
	}
	return stripeStatus(pi.Status), nil
}

func stripeStatus(s stripe.PaymentIntentStatus) Status {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// StripeEvent is the subset of a verified webhook event the API acts on.
type StripeEvent struct {
	Type            string
	AuthorizationID string
}

// ParseStripeWebhook verifies the Stripe-Signature header and extracts the payment
// intent id from payment_intent.* events.
func ParseStripeWebhook(payload []byte, signature, secret string) (*StripeEvent, error) {
	if secret == "" {
		return nil, ErrNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: invalid webhook: %w", err)
	}

	out := &StripeEvent{Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
		out.AuthorizationID = pi.ID
	}
	return out, nil
}
