// Package config loads application configuration from environment
// variables. Required variables are enforced with a fatal log; tunables
// fall back to sane defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Secrets (JWT signing key,
// DB password) come from the environment, never from code.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret  string        // secret used to sign bearer tokens
	JWTTTL     time.Duration // bearer token time-to-live
	BcryptCost int           // bcrypt work factor for password hashing
	ResetTTL   time.Duration // password-reset token time-to-live

	LoginMaxAttempts int           // login attempts allowed per window
	LoginWindow      time.Duration // brute-force guard window
}

// Load reads configuration from environment variables. Missing required
// values cause the process to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:  must("JWT_SECRET"),
		JWTTTL:     time.Duration(envInt("JWT_TTL_MIN", 90)) * time.Minute,
		BcryptCost: envInt("BCRYPT_COST", 12),
		ResetTTL:   time.Duration(envInt("RESET_TOKEN_TTL_MIN", 10)) * time.Minute,

		LoginMaxAttempts: envInt("LOGIN_RATE_LIMIT_ATTEMPTS", 5),
		LoginWindow:      envDur("LOGIN_RATE_LIMIT_WINDOW", 5*time.Minute),
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

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
