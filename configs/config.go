package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadEnvOnce sync.Once

func loadEnv() {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
	})
}

// Config returns the raw value of an environment variable after .env has been loaded.
func Config(key string) string {
	loadEnv()
	return os.Getenv(key)
}

type Settings struct {
	Port        string
	AppEnv      string
	DatabaseURL string
	JWTSecret   string
	CORSOrigins string

	CommissionRate          float64
	CancellationNoticeHours int

	PaymentProvider     string
	PaymentTimeout      time.Duration
	Currency            string
	StripeSecretKey     string
	StripeWebhookSecret string
	MidtransServerKey   string
	MidtransEnv         string

	RedisURL               string
	RateLimitMax           int
	RateLimitWindowSeconds int

	MeiliURL    string
	MeiliAPIKey string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailSender  string

	CloudinaryURL string
}

func Load() *Settings {
	loadEnv()

	return &Settings{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		CommissionRate:          getEnvFloat("PLATFORM_COMMISSION_RATE", 0.15),
		CancellationNoticeHours: getEnvInt("CANCELLATION_NOTICE_HOURS", 24),

		PaymentProvider:     strings.ToLower(getEnv("PAYMENT_PROVIDER", "stripe")),
		PaymentTimeout:      getEnvDuration("PAYMENT_TIMEOUT", 10*time.Second),
		Currency:            strings.ToLower(getEnv("CURRENCY", "usd")),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		MidtransServerKey:   getEnv("MIDTRANS_SERVER_KEY", ""),
		MidtransEnv:         getEnv("MIDTRANS_ENV", "sandbox"),

		RedisURL:               getEnv("REDIS_URL", ""),
		RateLimitMax:           getEnvInt("RATE_LIMIT_MAX", 30),
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),

		MeiliURL:    getEnv("MEILI_URL", ""),
		MeiliAPIKey: getEnv("MEILI_API_KEY", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailSender:  getEnv("EMAIL_SENDER", ""),

		CloudinaryURL: getEnv("CLOUDINARY_URL", ""),
	}
}

func (s *Settings) IsProduction() bool {
	return s.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️ Invalid integer for %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("⚠️ Invalid number for %s=%q, using %v", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("⚠️ Invalid duration for %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return v
}
