package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// respondError maps service errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without details.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		policyErr     *services.PolicyError
		conflictErr   *services.ConflictError
		permissionErr *services.PermissionError
		transitionErr *services.InvalidTransitionError
		externalErr   *services.ExternalServiceError
	)

	switch {
	case errors.As(err, &validationErr):
		return fail(c, fiber.StatusBadRequest, "VALIDATION", err.Error())
	case errors.As(err, &notFoundErr):
		return fail(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &policyErr):
		return fail(c, fiber.StatusUnprocessableEntity, "POLICY", err.Error())
	case errors.As(err, &conflictErr):
		return fail(c, fiber.StatusConflict, "CONFLICT", err.Error())
	case errors.As(err, &permissionErr):
		return fail(c, fiber.StatusForbidden, "PERMISSION", err.Error())
	case errors.As(err, &transitionErr):
		return fail(c, fiber.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.As(err, &externalErr):
		log.Printf("🔥 %v", err)
		return fail(c, fiber.StatusBadGateway, "EXTERNAL_SERVICE", "The payment service is unavailable, please try again")
	default:
		log.Printf("🔥 Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}

func fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message, "code": code})
}

// parseBody decodes and validates the request body into req. Failures come back as
// *services.ValidationError.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return &services.ValidationError{Message: "Cannot parse JSON"}
	}
	if err := validate.Struct(req); err != nil {
		return &services.ValidationError{Message: validationMessage(err)}
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, strings.ToLower(fe.Field())+" failed on "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, &services.ValidationError{Message: "invalid " + name}
	}
	return id, nil
}
