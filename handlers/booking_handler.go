package handlers

import (
	"errors"
	"time"

	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BookingHandler struct {
	bookings *services.BookingService
	reviews  *services.ReviewService
}

func NewBookingHandler(bookings *services.BookingService, reviews *services.ReviewService) *BookingHandler {
	return &BookingHandler{bookings: bookings, reviews: reviews}
}

type CreateBookingRequest struct {
	TeacherProfileID string    `json:"teacher_profile_id" validate:"required,uuid"`
	SubjectID        *string   `json:"subject_id,omitempty" validate:"omitempty,uuid"`
	StartTime        time.Time `json:"start_time" validate:"required"`
	EndTime          time.Time `json:"end_time" validate:"required"`
	Notes            *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	var req CreateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	in := services.CreateBookingInput{
		TeacherProfileID: uuid.MustParse(req.TeacherProfileID),
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Notes:            req.Notes,
	}
	if req.SubjectID != nil {
		subjectID := uuid.MustParse(*req.SubjectID)
		in.SubjectID = &subjectID
	}

	res, err := h.bookings.CreateBooking(c.UserContext(), middleware.CurrentActor(c), in)
	var externalErr *services.ExternalServiceError
	if errors.As(err, &externalErr) && res != nil {
		// The booking exists; the client can retry the payment later.
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "Booking created but payment authorization failed, please retry the payment",
			"code":    "EXTERNAL_SERVICE",
			"booking": res.Booking,
		})
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":       "Booking requested",
		"booking":       res.Booking,
		"client_secret": res.ClientSecret,
	})
}

func (h *BookingHandler) GetMyBookings(c *fiber.Ctx) error {
	status, err := statusQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	bookings, err := h.bookings.ListParentBookings(c.UserContext(), middleware.CurrentActor(c), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"bookings": bookings})
}

func (h *BookingHandler) GetTeacherBookings(c *fiber.Ctx) error {
	status, err := statusQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	bookings, err := h.bookings.ListTeacherBookings(c.UserContext(), middleware.CurrentActor(c), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"bookings": bookings})
}

func statusQuery(c *fiber.Ctx) (*models.BookingStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	status := models.BookingStatus(raw)
	if !status.Valid() {
		return nil, &services.ValidationError{Message: "unknown booking status " + raw}
	}
	return &status, nil
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	booking, err := h.bookings.GetBooking(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(booking)
}

type UpdateBookingStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

func (h *BookingHandler) UpdateBookingStatus(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req UpdateBookingStatusRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := h.bookings.UpdateStatus(c.UserContext(), middleware.CurrentActor(c), id, models.BookingStatus(req.Status), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Booking " + string(booking.Status), "booking": booking})
}

func (h *BookingHandler) RetryPayment(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.bookings.RetryPaymentAuthorization(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Payment authorized", "booking": res.Booking, "client_secret": res.ClientSecret})
}

func (h *BookingHandler) ReconcilePayment(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	booking, err := h.bookings.ReconcilePayment(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) GetBilling(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	billing, err := h.bookings.Billing(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(billing)
}

func (h *BookingHandler) GetEvents(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	events, err := h.bookings.ListEvents(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}

type SubmitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

func (h *BookingHandler) SubmitReview(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req SubmitReviewRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	review, err := h.reviews.SubmitReview(c.UserContext(), middleware.CurrentActor(c), id, req.Rating, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": "Review submitted", "review": review})
}
