package routes

import "github.com/gofiber/fiber/v2"

func BookingRoutes(api fiber.Router, d Deps) {
	booking := api.Group("/bookings")
	booking.Get("/me", d.protected(d.Bookings.GetMyBookings)...)
	booking.Post("", d.protected(d.limited(d.Bookings.CreateBooking)...)...)
	booking.Get("/:id", d.protected(d.Bookings.GetBooking)...)
	booking.Patch("/:id/status", d.protected(d.limited(d.Bookings.UpdateBookingStatus)...)...)
	booking.Post("/:id/payment/retry", d.protected(d.limited(d.Bookings.RetryPayment)...)...)
	booking.Post("/:id/payment/reconcile", d.protected(d.Bookings.ReconcilePayment)...)
	booking.Get("/:id/billing", d.protected(d.Bookings.GetBilling)...)
	booking.Get("/:id/events", d.protected(d.Bookings.GetEvents)...)
	booking.Post("/:id/review", d.protected(d.limited(d.Bookings.SubmitReview)...)...)
}
