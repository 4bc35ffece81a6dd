// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// InstrumentGatewayConfig provides settings for the warehouse/instrument
// result fetch gateway.
type InstrumentGatewayConfig interface {
	GetInstrumentBaseURL() string
	GetInstrumentAPIKey() string
	GetInstrumentTimeout() time.Duration
	GetInstrumentSourceSystem() string
}

// AIReviewConfig provides settings for the external AI scoring service.
type AIReviewConfig interface {
	GetAIReviewBaseURL() string
	GetAIReviewAPIKey() string
	GetAIReviewTimeout() time.Duration
}

// EmailConfig provides settings for SMTP notification email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromAddress() string
	GetSupervisorEmail() string
}

// FlaggingConfig provides settings for the reference-range seed loader.
type FlaggingConfig interface {
	GetFlaggingSeedPath() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	JWTAccessSecret        string
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	InstrumentBaseURL      string
	InstrumentAPIKey       string
	InstrumentTimeout      time.Duration
	InstrumentSourceSystem string
	AIReviewBaseURL        string
	AIReviewAPIKey         string
	AIReviewTimeout        time.Duration
	EmailEnabled           bool
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromAddress       string
	SupervisorEmail        string
	FlaggingSeedPath       string
	MigrationsDir          string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// InstrumentGatewayConfig implementation
func (c *Config) GetInstrumentBaseURL() string        { return c.InstrumentBaseURL }
func (c *Config) GetInstrumentAPIKey() string         { return c.InstrumentAPIKey }
func (c *Config) GetInstrumentTimeout() time.Duration { return c.InstrumentTimeout }
func (c *Config) GetInstrumentSourceSystem() string   { return c.InstrumentSourceSystem }

// AIReviewConfig implementation
func (c *Config) GetAIReviewBaseURL() string        { return c.AIReviewBaseURL }
func (c *Config) GetAIReviewAPIKey() string         { return c.AIReviewAPIKey }
func (c *Config) GetAIReviewTimeout() time.Duration { return c.AIReviewTimeout }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetSupervisorEmail() string  { return c.SupervisorEmail }

// FlaggingConfig implementation
func (c *Config) GetFlaggingSeedPath() string { return c.FlaggingSeedPath }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE_NAME", "ingest"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		InstrumentBaseURL:      getEnv("INSTRUMENT_BASE_URL", ""),
		InstrumentAPIKey:       getEnv("INSTRUMENT_API_KEY", ""),
		InstrumentTimeout:      mustDuration(getEnv("INSTRUMENT_TIMEOUT", "15s")),
		InstrumentSourceSystem: getEnv("INSTRUMENT_SOURCE_SYSTEM", "warehouse"),
		AIReviewBaseURL:        getEnv("AI_REVIEW_BASE_URL", ""),
		AIReviewAPIKey:         getEnv("AI_REVIEW_API_KEY", ""),
		AIReviewTimeout:        mustDuration(getEnv("AI_REVIEW_TIMEOUT", "30s")),
		EmailEnabled:           emailEnabled && smtpHost != "",
		SMTPHost:               smtpHost,
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
		SupervisorEmail:        getEnv("SUPERVISOR_EMAIL", ""),
		FlaggingSeedPath:       getEnv("FLAGGING_SEED_PATH", "seed/reference_ranges.yaml"),
		MigrationsDir:          getEnv("MIGRATIONS_DIR", "migrations"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.InstrumentBaseURL == "" {
		return nil, fmt.Errorf("INSTRUMENT_BASE_URL is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
