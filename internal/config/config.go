// Package config loads process configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full set of settings cmd/api reads at startup.
type Config struct {
	// HTTPAddr is the address the API listens on.
	HTTPAddr string
	// RequestTimeout is read from REQUEST_TIMEOUT (whole seconds,
	// default 10s). cmd/api does not pass it on: the router applies a
	// fixed 10-second timeout to every request whatever this is set to.
	RequestTimeout time.Duration

	// RedisURL backs the point-coordinate cache and rate limiter. If
	// empty, the process falls back to an uncached appstore.Store and
	// a fail-open no-op rate limiter.
	RedisURL string

	// DatabaseURL, if set, selects appstore.Postgres as the durable
	// backing store. If empty, the process runs with appstore.Memory
	// only (no durability across restarts).
	DatabaseURL string

	// OriginVerifyKey, if set, gates all non-health, non-swagger routes
	// behind the X-Origin-Verify header (see middleware.OriginVerify).
	OriginVerifyKey string

	// S3Bucket and S3Region configure roster snapshot export. Export
	// is disabled if S3Bucket is empty.
	S3Bucket string
	S3Region string

	// ClerkSecretKey authenticates the /ops/* operator surface.
	// Operator routes are disabled if empty.
	ClerkSecretKey string
}

// Load reads Config from the environment, first loading a .env file
// from the working directory if present (godotenv.Load silently
// no-ops when the file is absent, logged at Debug rather than treated
// as an error).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	timeout, err := parseDurationEnv("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        getEnvDefault("HTTP_ADDR", ":8080"),
		RequestTimeout:  timeout,
		RedisURL:        os.Getenv("REDIS_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		OriginVerifyKey: os.Getenv("ORIGIN_VERIFY_KEY"),
		S3Bucket:        os.Getenv("SNAPSHOT_S3_BUCKET"),
		S3Region:        getEnvDefault("SNAPSHOT_S3_REGION", "us-east-1"),
		ClerkSecretKey:  os.Getenv("CLERK_SECRET_KEY"),
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return time.Duration(seconds) * time.Second, nil
}
