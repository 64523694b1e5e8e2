package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const actorKey = "actor"

// Protected verifies the bearer token issued by the identity provider and stores the
// resulting actor for the handlers.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(secret),
		ErrorHandler:   jwtError,
		SuccessHandler: storeActor,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "Missing or malformed JWT", "code": "VALIDATION"})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"error": "Invalid or expired JWT", "code": "UNAUTHENTICATED"})
}

func storeActor(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return jwtError(c, errors.New("invalid token"))
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return jwtError(c, errors.New("invalid claims"))
	}
	actor, err := ActorFromClaims(claims)
	if err != nil {
		return jwtError(c, err)
	}
	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromClaims reads user_id, email, name and role. Unknown roles fall back to parent.
func ActorFromClaims(claims jwt.MapClaims) (services.Actor, error) {
	rawID, _ := claims["user_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return services.Actor{}, errors.New("token has no valid user_id")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	if role != models.RoleTeacher {
		role = models.RoleParent
	}
	return services.Actor{ID: id, Email: strings.ToLower(email), Name: name, Role: role}, nil
}

// CurrentActor returns the actor stored by Protected.
func CurrentActor(c *fiber.Ctx) services.Actor {
	actor, _ := c.Locals(actorKey).(services.Actor)
	return actor
}

func TeacherRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentActor(c).IsTeacher() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Teacher access required",
				"code":  "PERMISSION",
			})
		}
		return c.Next()
	}
}

// SyncUser mirrors the token's identity into the users table so bookings and
// conversations can reference it.
func SyncUser(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := CurrentActor(c)
		if actor.ID == uuid.Nil {
			return c.Next()
		}

		name := actor.Name
		if name == "" {
			name = actor.Email
		}
		user := models.User{ID: actor.ID, FullName: name, Email: actor.Email, Role: actor.Role}
		err := db.WithContext(c.UserContext()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "role", "updated_at"}),
		}).Create(&user).Error
		if err != nil {
			log.Printf("⚠️ Failed to sync user %s: %v", actor.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user", "code": "INTERNAL"})
		}
		return c.Next()
	}
}
