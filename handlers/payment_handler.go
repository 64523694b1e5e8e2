package handlers

import (
	"errors"
	"log"

	"github.com/anjiri1684/tutor_marketplace/payments"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	bookings            *services.BookingService
	stripeWebhookSecret string
}

func NewPaymentHandler(bookings *services.BookingService, stripeWebhookSecret string) *PaymentHandler {
	return &PaymentHandler{bookings: bookings, stripeWebhookSecret: stripeWebhookSecret}
}

// HandleStripeWebhook marks bookings paid when Stripe reports a succeeded payment
// intent. Other event types are acknowledged and ignored.
func (h *PaymentHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	event, err := payments.ParseStripeWebhook(c.Body(), c.Get("Stripe-Signature"), h.stripeWebhookSecret)
	if err != nil {
		log.Printf("⚠️ Rejected Stripe webhook: %v", err)
		return fail(c, fiber.StatusBadRequest, "VALIDATION", "Invalid webhook signature")
	}

	switch event.Type {
	case "payment_intent.succeeded":
		if _, err := h.bookings.MarkPaidByAuthorization(c.UserContext(), event.AuthorizationID); err != nil {
			return h.webhookError(c, event.AuthorizationID, err)
		}
		log.Printf("✅ Payment %s succeeded", event.AuthorizationID)
	case "payment_intent.payment_failed":
		log.Printf("⚠️ Payment %s failed at the processor", event.AuthorizationID)
	}
	return c.JSON(fiber.Map{"received": true})
}

type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

// HandleMidtransNotification treats the notification body as a hint only: the
// transaction's status is re-read from Midtrans before anything changes.
func (h *PaymentHandler) HandleMidtransNotification(c *fiber.Ctx) error {
	var n MidtransNotification
	if err := c.BodyParser(&n); err != nil || n.OrderID == "" {
		return fail(c, fiber.StatusBadRequest, "VALIDATION", "Cannot parse notification payload")
	}
	log.Printf("Received Midtrans notification for order %s: %s", n.OrderID, n.TransactionStatus)

	if _, err := h.bookings.ReconcileByAuthorization(c.UserContext(), n.OrderID); err != nil {
		return h.webhookError(c, n.OrderID, err)
	}
	return c.JSON(fiber.Map{"received": true})
}

// webhookError acknowledges events for unknown payments so the provider stops
// retrying; other failures are surfaced so it retries later.
func (h *PaymentHandler) webhookError(c *fiber.Ctx, authorizationID string, err error) error {
	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		log.Printf("⚠️ Webhook for unknown payment %s", authorizationID)
		return c.JSON(fiber.Map{"received": true})
	}
	return respondError(c, err)
}
