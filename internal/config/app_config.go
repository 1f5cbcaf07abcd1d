package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 3057.
	Port int `envconfig:"PORT" default:"3057"`

	// DataDir is the root data directory. Defaults to ~/.formrelay.
	DataDir string `envconfig:"FORMRELAY_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Recipients are the staff WhatsApp numbers that receive contact and lead
	// notifications, without the leading +.
	Recipients []string `envconfig:"FORMRELAY_RECIPIENTS" default:"94771461925,94778808689"`

	// CountryCode is prepended to customer numbers given in local format.
	CountryCode string `envconfig:"FORMRELAY_COUNTRY_CODE" default:"94"`

	// Timezone is used when rendering dates in messages.
	Timezone string `envconfig:"FORMRELAY_TIMEZONE" default:"Asia/Colombo"`

	// ReadyTimeout bounds how long a request waits for the WhatsApp client.
	ReadyTimeout time.Duration `envconfig:"FORMRELAY_READY_TIMEOUT" default:"30s"`

	// PollInterval is how often the readiness wait re-checks the client.
	PollInterval time.Duration `envconfig:"FORMRELAY_POLL_INTERVAL" default:"500ms"`

	// WatchdogInterval is how often the connection watchdog runs. Zero disables it.
	WatchdogInterval time.Duration `envconfig:"FORMRELAY_WATCHDOG_INTERVAL" default:"1m"`

	// RoutesFile optionally overrides recipients per form. Defaults to <DataDir>/routes.yaml.
	RoutesFile string `envconfig:"FORMRELAY_ROUTES_FILE"`

	// RecaptchaSecretKey enables classic reCAPTCHA v3 verification.
	RecaptchaSecretKey string `envconfig:"RECAPTCHA_SECRET_KEY"`

	// RecaptchaMinScore is the lowest accepted reCAPTCHA v3 score.
	RecaptchaMinScore float64 `envconfig:"RECAPTCHA_MIN_SCORE" default:"0.5"`

	// RecaptchaEnterpriseProject switches verification to reCAPTCHA Enterprise.
	RecaptchaEnterpriseProject string `envconfig:"RECAPTCHA_ENTERPRISE_PROJECT"`

	// RecaptchaEnterpriseAPIKey authenticates Enterprise assessment calls.
	RecaptchaEnterpriseAPIKey string `envconfig:"RECAPTCHA_ENTERPRISE_API_KEY"`

	// RecaptchaEnterpriseCredentialsFile is a service account key used instead
	// of the API key.
	RecaptchaEnterpriseCredentialsFile string `envconfig:"RECAPTCHA_ENTERPRISE_CREDENTIALS_FILE"`

	// RecaptchaSiteKey is the site key tokens were issued for (Enterprise only).
	RecaptchaSiteKey string `envconfig:"RECAPTCHA_SITE_KEY"`

	// OTLPEndpoint enables OpenTelemetry export when set. The exporters read
	// the remaining OTEL_EXPORTER_OTLP_* variables themselves.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// SMTP settings for the optional email copy of every notification.
	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string `envconfig:"SMTP_FROM"`
	SMTPTo         string `envconfig:"SMTP_TO"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`
}

// Load reads AppConfig from environment variables using envconfig, after
// loading envFiles (default ".env") into the environment. Missing env files
// are ignored; variables already set win over file values.
func Load(envFiles ...string) (*AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %q: %w", f, err)
		}
	}

	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".formrelay")
	}
	if c.RoutesFile == "" {
		c.RoutesFile = filepath.Join(c.DataDir, "routes.yaml")
	}
	if c.RecaptchaMinScore < 0 || c.RecaptchaMinScore > 1 {
		return nil, fmt.Errorf("RECAPTCHA_MIN_SCORE must be between 0 and 1, got %v", c.RecaptchaMinScore)
	}
	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LogDir returns the path to the log directory.
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// SessionDBPath returns the path of the WhatsApp session database.
func (c *AppConfig) SessionDBPath() string {
	return filepath.Join(c.DataDir, "whatsapp.db")
}

// CaptchaMode reports which verifier the configuration selects:
// "enterprise", "siteverify" or "none".
func (c *AppConfig) CaptchaMode() string {
	switch {
	case c.RecaptchaEnterpriseProject != "":
		return "enterprise"
	case c.RecaptchaSecretKey != "":
		return "siteverify"
	default:
		return "none"
	}
}
