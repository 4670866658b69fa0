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

// JWTConfig provides JWT validation settings for admin middleware.
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

// WebhookConfig provides settings for the ticketing webhook intake.
type WebhookConfig interface {
	GetTargetEventID() string
	GetPhoneRegion() string
	GetWebhookRateLimit() float64
	GetWebhookRateBurst() int
}

// IdentityConfig provides settings for identity record creation.
type IdentityConfig interface {
	GetIdentityInitialPassword() string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetEmailCopyFile() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// SchedulerConfig provides settings for the asynq-backed notification queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StorageConfig provides settings for the webhook payload archive.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketWebhookPayloads() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	EmailProviderBrevo = "brevo"
	EmailProviderSMTP  = "smtp"
)

// Config holds all application configuration values.
type Config struct {
	Env                        string
	HTTPAddr                   string
	StoreDriver                string
	DatabaseURL                string
	JWTAccessSecret            string
	CORSAllowAll               bool
	CORSOrigins                []string
	CORSAllowCreds             bool
	TargetEventID              string
	PhoneRegion                string
	WebhookRateLimit           float64
	WebhookRateBurst           int
	IdentityInitialPassword    string
	AppBaseURL                 string
	EmailEnabled               bool
	EmailProvider              string
	BrevoAPIKey                string
	SMTPHost                   string
	SMTPPort                   int
	SMTPUsername               string
	SMTPPassword               string
	EmailFromName              string
	EmailFromAddress           string
	EmailCopyFile              string
	RedisURL                   string
	RedisTLSInsecure           bool
	AsynqQueueName             string
	AsynqConcurrency           int
	MinIOEndpoint              string
	MinIOAccessKey             string
	MinIOSecretKey             string
	MinIOUseSSL                bool
	MinioBucketWebhookPayloads string
	ShutdownTimeout            time.Duration
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// WebhookConfig implementation
func (c *Config) GetTargetEventID() string     { return c.TargetEventID }
func (c *Config) GetPhoneRegion() string       { return c.PhoneRegion }
func (c *Config) GetWebhookRateLimit() float64 { return c.WebhookRateLimit }
func (c *Config) GetWebhookRateBurst() int     { return c.WebhookRateBurst }

// IdentityConfig implementation
func (c *Config) GetIdentityInitialPassword() string { return c.IdentityInitialPassword }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetEmailCopyFile() string    { return c.EmailCopyFile }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }
func (c *Config) IsNotificationQueued() bool { return c.RedisURL != "" }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketWebhookPayloads() string {
	return c.MinioBucketWebhookPayloads
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	emailProvider := strings.ToLower(getEnv("EMAIL_PROVIDER", EmailProviderBrevo))

	cfg := &Config{
		Env:                        getEnv("APP_ENV", "development"),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:                strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		JWTAccessSecret:            getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:               corsAllowAll,
		CORSOrigins:                corsOrigins,
		CORSAllowCreds:             strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		TargetEventID:              strings.TrimSpace(getEnv("TARGET_EVENT_ID", "39d1bce3-ad5b-41fb-8a41-aadee4d239b9")),
		PhoneRegion:                strings.ToUpper(getEnv("PHONE_REGION", "NZ")),
		WebhookRateLimit:           mustFloat(getEnv("WEBHOOK_RATE_LIMIT", "50")),
		WebhookRateBurst:           mustInt(getEnv("WEBHOOK_RATE_BURST", "100")),
		IdentityInitialPassword:    getEnv("IDENTITY_INITIAL_PASSWORD", ""),
		AppBaseURL:                 getEnv("APP_BASE_URL", "http://localhost:4200"),
		EmailProvider:              emailProvider,
		BrevoAPIKey:                getEnv("BREVO_API_KEY", ""),
		SMTPHost:                   getEnv("SMTP_HOST", ""),
		SMTPPort:                   mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:               getEnv("SMTP_USERNAME", ""),
		SMTPPassword:               getEnv("SMTP_PASSWORD", ""),
		EmailFromName:              getEnv("EMAIL_FROM_NAME", "Winetopia"),
		EmailFromAddress:           getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailCopyFile:              getEnv("EMAIL_COPY_FILE", ""),
		RedisURL:                   getEnv("REDIS_URL", ""),
		RedisTLSInsecure:           strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:             getEnv("ASYNQ_QUEUE", "notifications"),
		AsynqConcurrency:           mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		MinIOEndpoint:              getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:             getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:             getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketWebhookPayloads: getEnv("MINIO_BUCKET_WEBHOOK_PAYLOADS", "webhook-payloads"),
		ShutdownTimeout:            mustDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")),
	}

	switch emailProvider {
	case EmailProviderBrevo:
		cfg.EmailEnabled = emailEnabled && cfg.BrevoAPIKey != ""
		if emailEnabled && cfg.BrevoAPIKey == "" {
			return nil, fmt.Errorf("BREVO_API_KEY is required when EMAIL_ENABLED is true")
		}
	case EmailProviderSMTP:
		cfg.EmailEnabled = emailEnabled && cfg.SMTPHost != ""
		if emailEnabled && cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is smtp")
		}
	default:
		return nil, fmt.Errorf("unsupported EMAIL_PROVIDER %q", emailProvider)
	}

	if cfg.TargetEventID == "" {
		return nil, fmt.Errorf("TARGET_EVENT_ID is required")
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.IdentityInitialPassword == "" {
		return nil, fmt.Errorf("IDENTITY_INITIAL_PASSWORD is required")
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
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("invalid duration %q: %v", value, err))
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		panic(fmt.Sprintf("invalid integer %q: %v", value, err))
	}
	return n
}

func mustFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		panic(fmt.Sprintf("invalid number %q: %v", value, err))
	}
	return f
}
