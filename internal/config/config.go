// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Zone data for minimal container images

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Fields are populated from environment variables.
type Config struct {
	// Server settings
	Port int    // HTTP port to listen on
	Env  string // development, staging, production

	// Progress store
	DatabasePath string // Path to SQLite file
	DatabaseURL  string // Postgres DSN; takes precedence over DatabasePath

	// Reading plan
	PlanPath     string // Generated reading_plan.json
	Timezone     string // IANA zone used for "today" and the daily timer
	DispatchTime string // HH:MM wall-clock time of the daily send

	// Messaging
	MessagingProvider string   // twilio, telegram, log
	TwilioSID         string   // Twilio account SID
	TwilioToken       string   // Twilio auth token
	TwilioFrom        string   // Sender number, without channel prefix
	TwilioChannel     string   // whatsapp, sms
	TelegramToken     string   // Telegram bot token
	Recipients        []string // Daily reading recipients

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Messaging providers
const (
	ProviderTwilio   = "twilio"
	ProviderTelegram = "telegram"
	ProviderLog      = "log"
)

// Load reads configuration from environment variables.
// In development, it first loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	// This is a no-op in production where env vars are set directly
	_ = godotenv.Load()

	cfg := &Config{}

	// Server settings
	cfg.Port = getEnvInt("PORT", 8080)
	cfg.Env = getEnv("ENV", EnvDevelopment)

	// Progress store
	cfg.DatabasePath = getEnv("DATABASE_PATH", "./data/progress.db")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")

	// Reading plan
	cfg.PlanPath = getEnv("PLAN_PATH", "./reading_plan.json")
	cfg.Timezone = getEnv("TIMEZONE", "Africa/Nairobi")
	cfg.DispatchTime = getEnv("DISPATCH_TIME", "06:00")

	// Messaging. The log provider must be requested explicitly.
	cfg.MessagingProvider = strings.ToLower(getEnv("MESSAGING_PROVIDER", ProviderTwilio))
	cfg.TwilioSID = getEnv("TWILIO_SID", "")
	cfg.TwilioToken = getEnv("TWILIO_TOKEN", "")
	cfg.TwilioFrom = getEnv("TWILIO_FROM", "")
	cfg.TwilioChannel = strings.ToLower(getEnv("TWILIO_CHANNEL", "whatsapp"))
	cfg.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Recipients = ParseRecipients(getEnv("RECIPIENTS", getEnv("TWILIO_TO", "")))

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []error

	// Validate port range
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	// Validate environment
	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// Valid
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production; got %q", c.Env))
	}

	// A store location is always required; production must use Postgres
	if c.DatabasePath == "" && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_PATH or DATABASE_URL is required"))
	}
	if c.Env == EnvProduction && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}

	if c.PlanPath == "" {
		errs = append(errs, errors.New("PLAN_PATH is required"))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q is not a valid IANA zone", c.Timezone))
	}

	if _, _, err := c.DispatchClock(); err != nil {
		errs = append(errs, err)
	}

	// Provider credentials
	switch c.MessagingProvider {
	case ProviderTwilio:
		if c.TwilioSID == "" || c.TwilioToken == "" || c.TwilioFrom == "" {
			errs = append(errs, errors.New("TWILIO_SID, TWILIO_TOKEN and TWILIO_FROM are required for the twilio provider"))
		}
		switch c.TwilioChannel {
		case "whatsapp", "sms":
			// Valid
		default:
			errs = append(errs, fmt.Errorf("TWILIO_CHANNEL must be one of: whatsapp, sms; got %q", c.TwilioChannel))
		}
	case ProviderTelegram:
		if c.TelegramToken == "" {
			errs = append(errs, errors.New("TELEGRAM_TOKEN is required for the telegram provider"))
		}
	case ProviderLog:
		if c.Env == EnvProduction {
			errs = append(errs, errors.New("MESSAGING_PROVIDER=log is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("MESSAGING_PROVIDER must be one of: twilio, telegram, log; got %q", c.MessagingProvider))
	}

	if c.MessagingProvider != ProviderLog && len(c.Recipients) == 0 {
		errs = append(errs, errors.New("RECIPIENTS must list at least one address"))
	}

	// Validate log level
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", c.LogLevel))
	}

	// Validate log format
	switch c.LogFormat {
	case "json", "text":
		// Valid
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of: json, text; got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Location returns the configured time zone.
// Falls back to UTC if the zone cannot be loaded; Validate rejects that case.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DispatchClock parses DispatchTime into hour and minute.
func (c *Config) DispatchClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.DispatchTime)
	if err != nil {
		return 0, 0, fmt.Errorf("DISPATCH_TIME must be HH:MM, got %q", c.DispatchTime)
	}
	return t.Hour(), t.Minute(), nil
}

// ParseRecipients splits a semicolon-delimited address list.
// Blank entries and duplicates are dropped; order is preserved.
func ParseRecipients(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ";") {
		addr := strings.TrimSpace(part)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// getEnv reads an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
