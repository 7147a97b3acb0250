package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// FHIRBaseURL is the base used when synthesizing bundle entry fullUrls.
	FHIRBaseURL string `mapstructure:"FHIR_BASE_URL"`

	JWTSecret      string `mapstructure:"JWT_SECRET"`
	JWTExpiryHours int    `mapstructure:"JWT_EXPIRY_HOURS"`

	WebhookSecret         string `mapstructure:"WEBHOOK_SECRET"`
	WebhookTimeoutSeconds int    `mapstructure:"WEBHOOK_TIMEOUT_SECONDS"`
	WebhookPingSeconds    int    `mapstructure:"WEBHOOK_PING_SECONDS"`
	RetryIntervalSeconds  int    `mapstructure:"RETRY_INTERVAL_SECONDS"`
	RetryMaxAttempts      int    `mapstructure:"RETRY_MAX_ATTEMPTS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("FHIR_BASE_URL", "https://api.providercard.io/fhir")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("WEBHOOK_SECRET", "default-secret")
	v.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 30)
	v.SetDefault("WEBHOOK_PING_SECONDS", 10)
	v.SetDefault("RETRY_INTERVAL_SECONDS", 15)
	v.SetDefault("RETRY_MAX_ATTEMPTS", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("FHIR_BASE_URL")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_EXPIRY_HOURS")
	v.BindEnv("WEBHOOK_SECRET")
	v.BindEnv("WEBHOOK_TIMEOUT_SECONDS")
	v.BindEnv("WEBHOOK_PING_SECONDS")
	v.BindEnv("RETRY_INTERVAL_SECONDS")
	v.BindEnv("RETRY_MAX_ATTEMPTS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.WebhookSecret == "default-secret" {
		log.Println("WARNING: WEBHOOK_SECRET is the development default; outbound payload signatures are guessable")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// WebhookTimeout is the per-attempt deadline for change notifications.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

// WebhookPingTimeout is the deadline for endpoint connectivity checks.
func (c *Config) WebhookPingTimeout() time.Duration {
	return time.Duration(c.WebhookPingSeconds) * time.Second
}

// RetryInterval is the poll interval of the delivery retry worker.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalSeconds) * time.Second
}

// JWTExpiry is the lifetime of issued access tokens.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

// Validate checks that the configuration is safe to run. Production refuses
// to start with missing secrets or with the development signing secret.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.WebhookSecret == "" || c.WebhookSecret == "default-secret" {
			return fmt.Errorf("WEBHOOK_SECRET must be set to a non-default value in production")
		}
	}
	if c.WebhookTimeoutSeconds <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT_SECONDS must be positive, got %d", c.WebhookTimeoutSeconds)
	}
	if c.WebhookPingSeconds <= 0 {
		return fmt.Errorf("WEBHOOK_PING_SECONDS must be positive, got %d", c.WebhookPingSeconds)
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive, got %d", c.RetryMaxAttempts)
	}
	if c.JWTExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive, got %d", c.JWTExpiryHours)
	}
	return nil
}
