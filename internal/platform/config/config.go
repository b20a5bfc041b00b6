// Package config loads process configuration from the environment so main
// stays lean. A config/default.env file, when present, seeds values the same
// way the deployment's layered dotenv files do; real environment variables
// always win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process-level configuration.
type Server struct {
	Addr         string
	Environment  string
	LogLevel     string
	DatabaseURL  string
	PoolSize     int
	PoolTimeout  time.Duration
	AuditBuffer  int
	HistoryLimit int
}

const (
	defaultAddr         = ":4000"
	defaultPoolSize     = 2
	defaultPoolTimeout  = 3 * time.Second
	defaultAuditBuffer  = 256
	defaultHistoryLimit = 20
)

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	// Optional dotenv seed; missing file is fine.
	_ = godotenv.Load(filepath.Join("config", "default.env"))

	cfg := Server{
		Addr:         getEnv("CONSENTD_ADDR", defaultAddr),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     getEnv("LOGGING_CONSOLE_LEVEL", "info"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		PoolSize:     getEnvInt("PG_POOL_SIZE", defaultPoolSize),
		PoolTimeout:  getEnvDuration("PG_POOL_TIMEOUT", defaultPoolTimeout),
		AuditBuffer:  getEnvInt("AUDIT_BUFFER", defaultAuditBuffer),
		HistoryLimit: getEnvInt("CONSENT_HISTORY_LIMIT", defaultHistoryLimit),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts()
	}
	return cfg
}

// dsnFromParts assembles a postgres URL from the discrete PG_* variables used
// by older deployments. Returns empty when the host is unset.
func dsnFromParts() string {
	host := os.Getenv("PG_HOST")
	if host == "" {
		return ""
	}
	port := getEnv("PG_PORT", "5432")
	user := getEnv("PG_USERNAME", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := getEnv("PG_DATABASE", "consentd")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
