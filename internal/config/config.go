// Package config loads application configuration from environment
// variables.  Required variables are enforced with must(); optional
// tuning knobs fall back to sane defaults so a minimal .env is enough
// for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable; strings for identifiers and secrets, ints
// and durations for limits.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Booking engine knobs.
	HoldMinTTL     time.Duration // shortest hold a client may request
	HoldMaxTTL     time.Duration // longest hold a client may request
	ReaperInterval time.Duration // how often expired holds are swept
	ReaperBatch    int           // max holds expired per sweep
	PaymentTimeout time.Duration // ceiling on one payment oracle call
	CancelCutoff   time.Duration // minimum time before departure to allow cancellation
}

// Load reads configuration from the environment.  Missing required
// variables are fatal; engine knobs default when unset.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		HoldMinTTL:     envDur("HOLD_MIN_TTL", 30*time.Second),
		HoldMaxTTL:     envDur("HOLD_MAX_TTL", 10*time.Minute),
		ReaperInterval: envDur("REAPER_INTERVAL", 30*time.Second),
		ReaperBatch:    envInt("REAPER_BATCH", 100),
		PaymentTimeout: envDur("PAYMENT_TIMEOUT", 5*time.Second),
		CancelCutoff:   envDur("CANCEL_CUTOFF", time.Hour),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but parses the value as an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
