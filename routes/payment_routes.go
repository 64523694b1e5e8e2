package routes

import "github.com/gofiber/fiber/v2"

// PaymentRoutes are called by the payment providers and carry no user token.
func PaymentRoutes(api fiber.Router, d Deps) {
	payments := api.Group("/payments")
	payments.Post("/stripe/webhook", d.Payments.HandleStripeWebhook)
	payments.Post("/midtrans/notification", d.Payments.HandleMidtransNotification)
}
