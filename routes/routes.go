package routes

import (
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Deps struct {
	DB        *gorm.DB
	JWTSecret string
	// RateLimit guards booking and messaging writes. Nil disables it.
	RateLimit fiber.Handler

	Bookings  *handlers.BookingHandler
	Teachers  *handlers.TeacherHandler
	Uploads   *handlers.UploadHandler
	Messaging *handlers.MessagingHandler
	Payments  *handlers.PaymentHandler
}

// protected prefixes h with token verification and the users table sync. Chains are
// attached per route because group middleware would also match sibling prefixes such
// as /teachers under /teacher.
func (d Deps) protected(h ...fiber.Handler) []fiber.Handler {
	return append([]fiber.Handler{middleware.Protected(d.JWTSecret), middleware.SyncUser(d.DB)}, h...)
}

func (d Deps) teacherOnly(h ...fiber.Handler) []fiber.Handler {
	return d.protected(append([]fiber.Handler{middleware.TeacherRequired()}, h...)...)
}

// limited puts the rate limiter in front of h when one is configured.
func (d Deps) limited(h fiber.Handler) []fiber.Handler {
	if d.RateLimit == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{d.RateLimit, h}
}

func Setup(app *fiber.App, d Deps) {
	app.Get("/health", handlers.HealthCheck(d.DB))

	api := app.Group("/api/v1")
	PublicRoutes(api, d)
	PaymentRoutes(api, d)
	BookingRoutes(api, d)
	TeacherRoutes(api, d)
	MessagingRoutes(api, d)
}
