package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Verification strategy names accepted in VERIFY_STRATEGY.
const (
	VerifyByName      = "name"
	VerifyByBirthDate = "birthdate"
)

// Estimator strategy names accepted in ESTIMATOR_STRATEGY.
const (
	EstimatorAverage = "average"
	EstimatorBands   = "bands"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	// Clinic behavior
	ClinicTimezone        string
	VerifyStrategy        string
	EstimatorStrategy     string
	DefaultServiceMinutes int

	// Sessions
	SessionJWTSecret string
	SessionTTL       time.Duration
	StaffEmail       string
	StaffPasswordSHA string

	// Messaging platform (patient identity)
	PlatformProfileURL string
	PlatformTimeout    time.Duration

	// AWS / DynamoDB
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ReceptionTable      string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		ClinicTimezone:        getEnv("CLINIC_TIMEZONE", "Asia/Tokyo"),
		VerifyStrategy:        strings.ToLower(strings.TrimSpace(getEnv("VERIFY_STRATEGY", VerifyByName))),
		EstimatorStrategy:     strings.ToLower(strings.TrimSpace(getEnv("ESTIMATOR_STRATEGY", EstimatorAverage))),
		DefaultServiceMinutes: getEnvAsInt("DEFAULT_SERVICE_MINUTES", 15),

		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),
		SessionTTL:       getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		StaffEmail:       getEnv("STAFF_EMAIL", ""),
		StaffPasswordSHA: getEnv("STAFF_PASSWORD_SHA256", ""),

		PlatformProfileURL: getEnv("PLATFORM_PROFILE_URL", "https://api.line.me/v2/profile"),
		PlatformTimeout:    getEnvAsDuration("PLATFORM_TIMEOUT", 10*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ReceptionTable:      getEnv("RECEPTION_TABLE", "reception"),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, trimming blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
