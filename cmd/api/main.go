package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/jobs"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/payments"
	"github.com/anjiri1684/tutor_marketplace/routes"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("🔥 JWT_SECRET is required")
	}

	db, err := database.ConnectDB(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		log.Fatalf("🔥 %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("🔥 %v", err)
	}
	if err := database.SeedSubjects(db); err != nil {
		log.Printf("⚠️ %v", err)
	}

	coordinator, err := newCoordinator(cfg)
	if err != nil {
		log.Fatalf("🔥 Payment provider %q unavailable: %v", cfg.PaymentProvider, err)
	}
	log.Printf("✅ Payments go through %s", coordinator.Name())

	var notifier services.Notifier
	var mailer *notifications.Mailer
	if cfg.SMTPHost != "" {
		mailer, err = notifications.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailSender, "Tutor Marketplace")
		if err != nil {
			log.Printf("⚠️ Email disabled: %v", err)
		} else {
			notifier = mailer
		}
	}

	var index services.TeacherIndexer
	if cfg.MeiliURL != "" {
		index = services.NewMeiliTeacherIndex(cfg.MeiliURL, cfg.MeiliAPIKey)
	}

	var limiter *middleware.RateLimiter
	var rateLimit fiber.Handler
	if cfg.RedisURL != "" {
		limiter, err = middleware.NewRateLimiter(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Rate limiting disabled: %v", err)
		} else {
			rateLimit = limiter.Limit(cfg.RateLimitMax, time.Duration(cfg.RateLimitWindowSeconds)*time.Second)
		}
	}

	hub := websocket.NewHub()
	go hub.Run()

	bookings := services.NewBookingService(db, coordinator, notifier, hub, services.BookingOptions{
		CommissionRate:     cfg.CommissionRate,
		CancellationNotice: time.Duration(cfg.CancellationNoticeHours) * time.Hour,
		Currency:           cfg.Currency,
	})
	reviews := services.NewReviewService(db)
	teachers := services.NewTeacherService(db, index)
	messaging := services.NewMessagingService(db, hub, notifier)

	c := cron.New()
	if _, err := c.AddFunc("*/5 * * * *", jobs.NewExpiryJob(bookings).Run); err != nil {
		log.Fatalf("🔥 Failed to schedule expiry job: %v", err)
	}
	if notifier != nil {
		if _, err := c.AddFunc("*/5 * * * *", jobs.NewReminderJob(db, notifier).Run); err != nil {
			log.Fatalf("🔥 Failed to schedule reminder job: %v", err)
		}
	}
	c.Start()
	log.Println("✅ Cron jobs scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:      "Tutor Marketplace",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			errCode := "INTERNAL"
			if code < fiber.StatusInternalServerError {
				errCode = "REQUEST_ERROR"
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error(), "code": errCode})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Retry-After",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Setup(app, routes.Deps{
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		RateLimit: rateLimit,
		Bookings:  handlers.NewBookingHandler(bookings, reviews),
		Teachers:  handlers.NewTeacherHandler(teachers, reviews),
		Uploads:   handlers.NewUploadHandler(cfg.CloudinaryURL, teachers),
		Messaging: handlers.NewMessagingHandler(messaging, hub, cfg.JWTSecret),
		Payments:  handlers.NewPaymentHandler(bookings, cfg.StripeWebhookSecret),
	})

	go func() {
		log.Printf("✅ Server is running on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("🔥 Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	<-c.Stop().Done()
	hub.Stop()
	if mailer != nil {
		mailer.Wait()
	}
	if limiter != nil {
		_ = limiter.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newCoordinator(cfg *config.Settings) (payments.Coordinator, error) {
	var (
		coordinator payments.Coordinator
		err         error
	)
	switch cfg.PaymentProvider {
	case "midtrans":
		coordinator, err = payments.NewMidtransCoordinator(cfg.MidtransServerKey, cfg.Currency, cfg.MidtransEnv == "production")
	default:
		coordinator, err = payments.NewStripeCoordinator(cfg.StripeSecretKey, cfg.Currency)
	}
	if err != nil {
		return nil, err
	}
	return payments.WithTimeout(coordinator, cfg.PaymentTimeout), nil
}
