// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Identifiers and secrets are strings; durations
// are expressed as integers in the unit named by the variable.
type Config struct {
	Env              string // application environment (dev/test/prod)
	Port             string // HTTP port to listen on
	DBUser           string // database username
	DBPass           string // database password (optional)
	DBHost           string // database host address
	DBPort           string // database port number
	DBName           string // database name
	JWTSecret        string // secret used to verify access tokens
	HoldTTLMin       int    // seat hold time-to-live in minutes
	SweepIntervalSec int    // interval between expiry sweeps in seconds
	SweepBatch       int    // maximum expired holds reclaimed per sweep pass
}

// Load reads configuration from the environment and returns a Config.  A
// local .env file is applied first when present.  Required variables are
// enforced by must(); missing values abort startup with a fatal log message.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"),
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		JWTSecret:        must("JWT_SECRET"),
		HoldTTLMin:       intOr("HOLD_TTL_MIN", 10),
		SweepIntervalSec: intOr("SWEEP_INTERVAL_SEC", 30),
		SweepBatch:       intOr("SWEEP_BATCH", 500),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr parses an optional integer variable, falling back to def when the
// variable is unset.  A malformed value is fatal rather than silently
// defaulted so that misconfiguration is caught at startup.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
