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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetWebhookAPIKey() string
}

// RedisConfig provides settings for Redis-backed locking, dedupe and the task queue.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	IsRedisEnabled() bool
}

// SchedulerConfig provides settings for the asynq worker and hold sweep.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueue() string
	GetAsynqConcurrency() int
	GetHoldSweepInterval() time.Duration
}

// WhatsAppConfig provides settings for the WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	IsWhatsAppEnabled() bool
}

// SMTPConfig provides settings for outbound email.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetStaffAlertEmail() string
	IsEmailEnabled() bool
}

// PaymentConfig provides settings for deposit checkout links.
type PaymentConfig interface {
	GetStripeSecretKey() string
	GetStripeWebhookSecret() string
	GetDepositSuccessURL() string
	GetDepositCurrency() string
	GetDepositAmountCents() int64
	IsPaymentsEnabled() bool
}

// AssistantConfig provides settings for the language-model fallback.
type AssistantConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotModel() string
	IsAssistantEnabled() bool
}

// BookingConfig provides settings for slot generation and the hold lifecycle.
type BookingConfig interface {
	GetStudioLocation() *time.Location
	GetHoldTTL() time.Duration
	GetHoldWarningWindow() time.Duration
	GetSlotsSynthetic() bool
	GetSlotsOfferCount() int
	GetSlotHorizonDays() int
	GetConsultDuration() time.Duration
	GetArtistsFile() string
	GetVideoBaseURL() string
	GetLockTTL() time.Duration
	GetDedupeTTL() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	CORSAllowAll        bool
	CORSOrigins         []string
	WebhookAPIKey       string
	RedisURL            string
	RedisTLSInsecure    bool
	AsynqQueue          string
	AsynqConcurrency    int
	HoldSweepInterval   time.Duration
	WhatsAppURL         string
	WhatsAppKey         string
	WhatsAppDeviceID    string
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	EmailFromName       string
	EmailFromAddress    string
	StaffAlertEmail     string
	StripeSecretKey     string
	StripeWebhookSecret string
	DepositSuccessURL   string
	DepositCurrency     string
	DepositAmountCents  int64
	MoonshotAPIKey      string
	MoonshotModel       string
	StudioLocation      *time.Location
	HoldTTL             time.Duration
	HoldWarningWindow   time.Duration
	SlotsSynthetic      bool
	SlotsOfferCount     int
	SlotHorizonDays     int
	ConsultDuration     time.Duration
	ArtistsFile         string
	VideoBaseURL        string
	LockTTL             time.Duration
	DedupeTTL           time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetWebhookAPIKey() string { return c.WebhookAPIKey }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) IsRedisEnabled() bool      { return c.RedisURL != "" }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueue() string               { return c.AsynqQueue }
func (c *Config) GetAsynqConcurrency() int            { return c.AsynqConcurrency }
func (c *Config) GetHoldSweepInterval() time.Duration { return c.HoldSweepInterval }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }
func (c *Config) IsWhatsAppEnabled() bool     { return c.WhatsAppURL != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetStaffAlertEmail() string  { return c.StaffAlertEmail }
func (c *Config) IsEmailEnabled() bool        { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// PaymentConfig implementation
func (c *Config) GetStripeSecretKey() string     { return c.StripeSecretKey }
func (c *Config) GetStripeWebhookSecret() string { return c.StripeWebhookSecret }
func (c *Config) GetDepositSuccessURL() string   { return c.DepositSuccessURL }
func (c *Config) GetDepositCurrency() string     { return c.DepositCurrency }
func (c *Config) GetDepositAmountCents() int64   { return c.DepositAmountCents }
func (c *Config) IsPaymentsEnabled() bool        { return c.StripeSecretKey != "" }

// AssistantConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotModel() string  { return c.MoonshotModel }
func (c *Config) IsAssistantEnabled() bool  { return c.MoonshotAPIKey != "" }

// BookingConfig implementation
func (c *Config) GetStudioLocation() *time.Location    { return c.StudioLocation }
func (c *Config) GetHoldTTL() time.Duration            { return c.HoldTTL }
func (c *Config) GetHoldWarningWindow() time.Duration  { return c.HoldWarningWindow }
func (c *Config) GetSlotsSynthetic() bool              { return c.SlotsSynthetic }
func (c *Config) GetSlotsOfferCount() int              { return c.SlotsOfferCount }
func (c *Config) GetSlotHorizonDays() int              { return c.SlotHorizonDays }
func (c *Config) GetConsultDuration() time.Duration    { return c.ConsultDuration }
func (c *Config) GetArtistsFile() string               { return c.ArtistsFile }
func (c *Config) GetVideoBaseURL() string              { return c.VideoBaseURL }
func (c *Config) GetLockTTL() time.Duration            { return c.LockTTL }
func (c *Config) GetDedupeTTL() time.Duration          { return c.DedupeTTL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := containsWildcard(corsOrigins)

	loc, err := time.LoadLocation(getEnv("STUDIO_TIMEZONE", "America/New_York"))
	if err != nil {
		return nil, fmt.Errorf("STUDIO_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		WebhookAPIKey:       getEnv("WEBHOOK_API_KEY", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueue:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    mustInt(getEnv("ASYNQ_CONCURRENCY", "5"), 5),
		HoldSweepInterval:   mustDuration(getEnv("HOLD_SWEEP_INTERVAL", "1m"), time.Minute),
		WhatsAppURL:         getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:         getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:    getEnv("WHATSAPP_DEVICE_ID", ""),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            mustInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Studio"),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		StaffAlertEmail:     getEnv("STAFF_ALERT_EMAIL", ""),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		DepositSuccessURL:   getEnv("DEPOSIT_SUCCESS_URL", "http://localhost:4200/deposit/thanks"),
		DepositCurrency:     strings.ToLower(getEnv("DEPOSIT_CURRENCY", "usd")),
		DepositAmountCents:  int64(mustInt(getEnv("DEPOSIT_AMOUNT_CENTS", "10000"), 10000)),
		MoonshotAPIKey:      getEnv("MOONSHOT_API_KEY", ""),
		MoonshotModel:       getEnv("MOONSHOT_MODEL", "kimi-k2.5"),
		StudioLocation:      loc,
		HoldTTL:             mustDuration(getEnv("HOLD_TTL", "20m"), 20*time.Minute),
		HoldWarningWindow:   mustDuration(getEnv("HOLD_WARNING_WINDOW", "5m"), 5*time.Minute),
		SlotsSynthetic:      strings.EqualFold(getEnv("SLOTS_SYNTHETIC", "false"), "true"),
		SlotsOfferCount:     mustInt(getEnv("SLOTS_OFFER_COUNT", "3"), 3),
		SlotHorizonDays:     mustInt(getEnv("SLOTS_HORIZON_DAYS", "21"), 21),
		ConsultDuration:     mustDuration(getEnv("CONSULT_DURATION", "30m"), 30*time.Minute),
		ArtistsFile:         getEnv("ARTISTS_FILE", "artists.yaml"),
		VideoBaseURL:        getEnv("VIDEO_BASE_URL", "https://meet.jit.si"),
		LockTTL:             mustDuration(getEnv("LEAD_LOCK_TTL", "30s"), 30*time.Second),
		DedupeTTL:           mustDuration(getEnv("MESSAGE_DEDUPE_TTL", "24h"), 24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.HoldWarningWindow >= cfg.HoldTTL {
		return nil, fmt.Errorf("HOLD_WARNING_WINDOW must be shorter than HOLD_TTL")
	}
	if cfg.SlotsOfferCount < 1 {
		return nil, fmt.Errorf("SLOTS_OFFER_COUNT must be at least 1")
	}
	if cfg.IsPaymentsEnabled() && cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	if cfg.WebhookAPIKey == "" && strings.EqualFold(cfg.Env, "production") {
		return nil, fmt.Errorf("WEBHOOK_API_KEY is required in production")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
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
