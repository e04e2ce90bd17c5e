package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Temp storage backends for receipt uploads.
const (
	TempBackendLocal = "local"
	TempBackendGCS   = "gcs"
)

type Config struct {
	// HTTP server
	Port string
	Env  string

	// Logging
	LogLevel string

	// Ledger store
	MongoURI      string
	MongoDatabase string

	// Auth
	JWTSecret string

	// Receipt ingestion
	TempBackend    string
	UploadDir      string
	GCSBucket      string
	GeminiModel    string
	MaxUploadBytes int64
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "receiptledger"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		TempBackend:    getEnv("TEMP_BACKEND", TempBackendLocal),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		GCSBucket:      getEnv("GCS_BUCKET", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", ""),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
	}
}

// Production reports whether error responses should omit internal detail.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate returns an error describing every invalid field at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MongoURI == "" {
		problems = append(problems, "MONGO_URI is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}

	switch c.TempBackend {
	case TempBackendLocal:
	case TempBackendGCS:
		if c.GCSBucket == "" {
			problems = append(problems, "GCS_BUCKET is required when TEMP_BACKEND=gcs")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid temp backend %q: must be %q or %q",
			c.TempBackend, TempBackendLocal, TempBackendGCS))
	}

	if c.MaxUploadBytes < 1 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
