package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string
	LogLevel       string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often a pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Auth AuthConfig

	Booking BookingConfig

	// PaymentWebhookSecret signs processor callbacks to /v1/webhooks/payments.
	PaymentWebhookSecret string

	// CORSAllowedOrigins is a comma-separated allowlist of browser origins. Example:
	//   https://gear.example.com,http://localhost:5173
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type AuthConfig struct {
	// TokenSecret is the HS256 key shared with the identity provider.
	TokenSecret string
	// TokenAudience is checked against the aud claim when non-empty.
	TokenAudience string
}

type BookingConfig struct {
	// UpfrontFeePercent is the share of the rental subtotal captured when a request is submitted.
	UpfrontFeePercent decimal.Decimal
	DefaultCurrency   string

	// upfrontFeeRaw is UPFRONT_FEE_PERCENT as read, kept so Validate can report a value that did not parse.
	upfrontFeeRaw string
}

func (c Config) IsProd() bool {
	return c.AppEnv == "prod"
}

// Validate reports settings that would otherwise surface later as per-request failures.
func (c Config) Validate() error {
	if raw := c.Booking.upfrontFeeRaw; raw != "" {
		if _, err := decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("UPFRONT_FEE_PERCENT %q is not a number", raw)
		}
	}
	p := c.Booking.UpfrontFeePercent
	if p.LessThanOrEqual(decimal.Zero) || p.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("UPFRONT_FEE_PERCENT must be between 0 and 100 exclusive, got %s", p)
	}
	return nil
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	upfrontRaw := strings.TrimSpace(env("UPFRONT_FEE_PERCENT", "15"))
	// Left zero on a parse error; Validate reports it.
	upfront, _ := decimal.NewFromString(upfrontRaw)

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		LogLevel:       env("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "gearrental"),
			User:     env("DB_USER", "gearrental"),
			Password: env("DB_PASSWORD", "gearrental"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			TokenSecret:   os.Getenv("AUTH_TOKEN_SECRET"),
			TokenAudience: os.Getenv("AUTH_TOKEN_AUDIENCE"),
		},
		Booking: BookingConfig{
			UpfrontFeePercent: upfront,
			DefaultCurrency:   strings.ToUpper(env("DEFAULT_CURRENCY", "USD")),
			upfrontFeeRaw:     upfrontRaw,
		},
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),

		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
