package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/appointment-payments/pkg/database"
)

// Config is the complete service configuration
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string
	HTTPPort    string
	WorkerPort  string

	Database  database.Config
	JWTSecret string

	Razorpay RazorpayConfig
	Stripe   StripeConfig

	ProviderTimeout    time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration

	Kafka     KafkaConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig

	Tracing TracingConfig

	NotificationMaxRetries int
	BusinessName           string
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
}

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type TracingConfig struct {
	JaegerEndpoint string
	SampleRatio    float64
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// Load reads an optional .env file, then the environment
func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return &Config{
		ServiceName: getEnv("OTEL_SERVICE_NAME", "payment-service"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTPPort:    getEnv("HTTP_PORT", "8083"),
		WorkerPort:  getEnv("WORKER_METRICS_PORT", "9103"),

		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "paymentdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWTSecret: getEnv("JWT_SECRET", ""),

		Razorpay: RazorpayConfig{
			KeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			BaseURL:       getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		},
		Stripe: StripeConfig{
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},

		ProviderTimeout:    getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		BreakerMaxFailures: getInt("PROVIDER_BREAKER_MAX_FAILURES", 5),
		BreakerOpenTimeout: getDuration("PROVIDER_BREAKER_OPEN_TIMEOUT", 30*time.Second),

		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_NOTIFICATION_TOPIC", "payment-notifications"),
			GroupID: getEnv("KAFKA_GROUP_ID", "payment-notification-worker"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", "receipts@localhost"),
		},
		RateLimit: RateLimitConfig{
			Max:    getInt("RATE_LIMIT_MAX", 60),
			Window: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},

		Tracing: TracingConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			SampleRatio:    getFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		},

		NotificationMaxRetries: getInt("NOTIFICATION_MAX_RETRIES", 5),
		BusinessName:           getEnv("BUSINESS_NAME", ""),
	}
}

// IsDevelopment reports whether pretty console logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks the secrets the HTTP service cannot run without. At least
// one provider must be fully configured.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, missing("JWT_SECRET"))
	}

	razorpay := c.Razorpay.KeyID != "" || c.Razorpay.KeySecret != ""
	if razorpay {
		if c.Razorpay.KeyID == "" {
			errs = append(errs, missing("RAZORPAY_KEY_ID"))
		}
		if c.Razorpay.KeySecret == "" {
			errs = append(errs, missing("RAZORPAY_KEY_SECRET"))
		}
		if c.Razorpay.WebhookSecret == "" {
			errs = append(errs, missing("RAZORPAY_WEBHOOK_SECRET"))
		}
	}
	stripe := c.Stripe.SecretKey != ""
	if stripe && c.Stripe.WebhookSecret == "" {
		errs = append(errs, missing("STRIPE_WEBHOOK_SECRET"))
	}
	if !razorpay && !stripe {
		errs = append(errs, errors.New("no payment provider configured: set RAZORPAY_KEY_ID or STRIPE_SECRET_KEY"))
	}

	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout))
	}
	return errors.Join(errs...)
}

func missing(key string) error {
	return fmt.Errorf("missing required environment variable: %s", key)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
