package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultShadowFieldName is the service custom field holding the last known
// mailcow administrator username.
const DefaultShadowFieldName = "mailcow_admin_username"

type Config struct {
	ServiceName       string
	DatabaseURL       string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	// MigrationsDir overrides the migrations built into the binary.
	MigrationsDir string
	// ModuleAPIKey authenticates the billing host against the module API.
	ModuleAPIKey string
	// PasswordEncryptionKey is the hex master key used to encrypt the
	// administrator password stored on the service record.
	PasswordEncryptionKey string
	ShadowFieldName       string
	MailcowTimeout        time.Duration

	HTTPTLSCert     string
	HTTPTLSKey      string
	HTTPTLSClientCA string
}

func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("MAILCOW_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse MAILCOW_TIMEOUT: %w", err)
	}

	cfg := &Config{
		ServiceName:           getEnv("SERVICE_NAME", "mailprov"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8095"),
		MetricsListenAddr:     getEnv("METRICS_LISTEN_ADDR", ":9095"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		MigrationsDir:         getEnv("MIGRATIONS_DIR", ""),
		ModuleAPIKey:          getEnv("MODULE_API_KEY", ""),
		PasswordEncryptionKey: getEnv("PASSWORD_ENCRYPTION_KEY", ""),
		ShadowFieldName:       getEnv("SHADOW_FIELD_NAME", DefaultShadowFieldName),
		MailcowTimeout:        timeout,
		HTTPTLSCert:           getEnv("HTTP_TLS_CERT", ""),
		HTTPTLSKey:            getEnv("HTTP_TLS_KEY", ""),
		HTTPTLSClientCA:       getEnv("HTTP_TLS_CLIENT_CA", ""),
	}

	return cfg, nil
}

// Validate checks that the settings required by the given binary are present.
func (c *Config) Validate(component string) error {
	var missing []string

	switch component {
	case "api":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
		if c.ModuleAPIKey == "" {
			missing = append(missing, "MODULE_API_KEY")
		}
		if c.PasswordEncryptionKey == "" {
			missing = append(missing, "PASSWORD_ENCRYPTION_KEY")
		}
	case "migrate":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case "ctl":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.PasswordEncryptionKey == "" {
			missing = append(missing, "PASSWORD_ENCRYPTION_KEY")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if component == "api" && len(c.ModuleAPIKey) < 32 {
		return fmt.Errorf("MODULE_API_KEY must be at least 32 characters")
	}
	if (c.HTTPTLSCert == "") != (c.HTTPTLSKey == "") {
		return fmt.Errorf("HTTP_TLS_CERT and HTTP_TLS_KEY must both be set")
	}
	if c.HTTPTLSClientCA != "" && c.HTTPTLSCert == "" {
		return fmt.Errorf("HTTP_TLS_CLIENT_CA requires HTTP_TLS_CERT and HTTP_TLS_KEY")
	}
	if c.MailcowTimeout <= 0 {
		return fmt.Errorf("MAILCOW_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
