package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration from environment variables, loading a
// local .env file first if one exists. Missing variables leave the current
// values untouched.
func parseEnv(config *Config) {
	// Absent .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv("SESSION_TOKEN_VALIDITY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.SessionTokenValidityDuration = d
		}
	}
	if v := os.Getenv("MERGE_PRECEDENCE"); v != "" {
		config.MergePrecedence = v
	}
	if v := os.Getenv("S3_ROOT_USER"); v != "" {
		config.S3RootUser = v
	}
	if v := os.Getenv("S3_ROOT_PASSWORD"); v != "" {
		config.S3RootPassword = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		config.S3Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		config.S3Region = v
	}
	if v := os.Getenv("S3_BASE_ENDPOINT"); v != "" {
		config.S3BaseEndpoint = v
	}
}
