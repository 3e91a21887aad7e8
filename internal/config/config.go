// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret string // secret used to verify JWTs issued by the identity service

	LockTTL        time.Duration // how long a seat lock survives without payment
	ReaperInterval time.Duration // how often the periodic sweep runs

	Currency           string // ISO currency code for checkout sessions
	CheckoutSecretKey  string // gateway API key; empty selects the mock gateway
	CheckoutBaseURL    string
	CheckoutSuccessURL string // template receiving the booking id via %d
	CheckoutCancelURL  string
}

// Load reads configuration from environment variables. Required
// variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret: must("JWT_SECRET"),

		LockTTL:        time.Duration(envInt("LOCK_TTL_MIN", 10)) * time.Minute,
		ReaperInterval: envDur("REAPER_INTERVAL", 30*time.Second),

		Currency:           envStr("PAYMENT_CURRENCY", "EUR"),
		CheckoutSecretKey:  os.Getenv("CHECKOUT_SECRET_KEY"),
		CheckoutBaseURL:    envStr("CHECKOUT_BASE_URL", "https://api.checkout.local"),
		CheckoutSuccessURL: envStr("CHECKOUT_SUCCESS_URL", "http://localhost:8080/v1/bookings/%d/confirm"),
		CheckoutCancelURL:  envStr("CHECKOUT_CANCEL_URL", "http://localhost:8080/v1/bookings/%d"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
