package handlers

import (
	"strings"

	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TeacherHandler struct {
	teachers *services.TeacherService
	reviews  *services.ReviewService
}

func NewTeacherHandler(teachers *services.TeacherService, reviews *services.ReviewService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers, reviews: reviews}
}

// SearchTeachers handles GET /teachers. Rates in the query are in major units.
func (h *TeacherHandler) SearchTeachers(c *fiber.Ctx) error {
	filter := services.TeacherFilter{
		Query:         c.Query("q"),
		OnlyAccepting: c.QueryBool("accepting", false),
		Page:          c.QueryInt("page", 1),
		PerPage:       c.QueryInt("per_page", 20),
	}
	if raw := c.Query("subjects"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return respondError(c, &services.ValidationError{Message: "invalid subject id " + part})
			}
			filter.SubjectIDs = append(filter.SubjectIDs, id)
		}
	}
	if v := c.QueryFloat("min_rate", -1); v >= 0 {
		cents := services.DollarsToCents(v)
		filter.MinRate = &cents
	}
	if v := c.QueryFloat("max_rate", -1); v >= 0 {
		cents := services.DollarsToCents(v)
		filter.MaxRate = &cents
	}
	if v := c.QueryFloat("min_rating", -1); v >= 0 {
		filter.MinRating = &v
	}

	teachers, meta, err := h.teachers.SearchTeachers(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"teachers": teachers, "pagination": meta})
}

func (h *TeacherHandler) GetTeacher(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	profile, err := h.teachers.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

func (h *TeacherHandler) GetTeacherAvailability(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	slots, err := h.teachers.ListAvailability(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"availability": slots})
}

func (h *TeacherHandler) GetTeacherReviews(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	reviews, err := h.reviews.ListTeacherReviews(c.UserContext(), id, c.QueryInt("limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"reviews": reviews})
}

func (h *TeacherHandler) ListSubjects(c *fiber.Ctx) error {
	subjects, err := h.teachers.ListSubjects(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"subjects": subjects})
}

func (h *TeacherHandler) GetMyProfile(c *fiber.Ctx) error {
	profile, err := h.teachers.GetMyProfile(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

type UpsertProfileRequest struct {
	Headline          *string `json:"headline" validate:"omitempty,max=255"`
	Bio               *string `json:"bio" validate:"omitempty,max=5000"`
	HourlyRate        float64 `json:"hourly_rate" validate:"required,gt=0"`
	YearsOfExperience int     `json:"years_of_experience" validate:"gte=0"`
	Education         *string `json:"education" validate:"omitempty,max=2000"`
}

func (h *TeacherHandler) UpsertProfile(c *fiber.Ctx) error {
	var req UpsertProfileRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	profile, err := h.teachers.UpsertProfile(c.UserContext(), middleware.CurrentActor(c), services.ProfileInput{
		Headline:          req.Headline,
		Bio:               req.Bio,
		HourlyRate:        req.HourlyRate,
		YearsOfExperience: req.YearsOfExperience,
		Education:         req.Education,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Profile saved", "profile": profile})
}

func (h *TeacherHandler) ToggleAccepting(c *fiber.Ctx) error {
	profile, err := h.teachers.ToggleAcceptingStudents(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":                       "Availability for new students updated",
		"is_available_for_new_students": profile.IsAvailableForNewStudents,
	})
}

func (h *TeacherHandler) AddSubject(c *fiber.Ctx) error {
	id, err := uuidParam(c, "subjectId")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.teachers.AddSubject(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Subject added"})
}

func (h *TeacherHandler) RemoveSubject(c *fiber.Ctx) error {
	id, err := uuidParam(c, "subjectId")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.teachers.RemoveSubject(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Subject removed"})
}

type AvailabilityRequest struct {
	DayOfWeek   *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	IsRecurring *bool  `json:"is_recurring"`
}

func (r AvailabilityRequest) input() services.AvailabilityInput {
	return services.AvailabilityInput{
		DayOfWeek:   *r.DayOfWeek,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsRecurring: r.IsRecurring,
	}
}

func (h *TeacherHandler) AddAvailability(c *fiber.Ctx) error {
	var req AvailabilityRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	slot, err := h.teachers.AddAvailability(c.UserContext(), middleware.CurrentActor(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": "Availability added", "slot": slot})
}

func (h *TeacherHandler) UpdateAvailability(c *fiber.Ctx) error {
	id, err := uuidParam(c, "slotId")
	if err != nil {
		return respondError(c, err)
	}
	var req AvailabilityRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	slot, err := h.teachers.UpdateAvailability(c.UserContext(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Availability updated", "slot": slot})
}

func (h *TeacherHandler) DeleteAvailability(c *fiber.Ctx) error {
	id, err := uuidParam(c, "slotId")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.teachers.DeleteAvailability(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Availability removed"})
}
