package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVICE_NAME", "DATABASE_URL", "HTTP_LISTEN_ADDR", "METRICS_LISTEN_ADDR", "LOG_LEVEL",
		"MIGRATIONS_DIR", "MODULE_API_KEY", "SHADOW_FIELD_NAME", "MAILCOW_TIMEOUT",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "mailprov", cfg.ServiceName)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, ":8095", cfg.HTTPListenAddr)
	assert.Equal(t, ":9095", cfg.MetricsListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MigrationsDir)
	assert.Equal(t, DefaultShadowFieldName, cfg.ShadowFieldName)
	assert.Equal(t, 30*time.Second, cfg.MailcowTimeout)
}

func TestLoad_AllEnvVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://billing:5432/whmcs")
	t.Setenv("HTTP_LISTEN_ADDR", ":7071")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MODULE_API_KEY", "module-key")
	t.Setenv("PASSWORD_ENCRYPTION_KEY", "00ff")
	t.Setenv("SHADOW_FIELD_NAME", "mc_admin")
	t.Setenv("MAILCOW_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://billing:5432/whmcs", cfg.DatabaseURL)
	assert.Equal(t, ":7071", cfg.HTTPListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "module-key", cfg.ModuleAPIKey)
	assert.Equal(t, "00ff", cfg.PasswordEncryptionKey)
	assert.Equal(t, "mc_admin", cfg.ShadowFieldName)
	assert.Equal(t, 5*time.Second, cfg.MailcowTimeout)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("MAILCOW_TIMEOUT", "thirty")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAILCOW_TIMEOUT")
}

func TestValidate_API_MissingFields(t *testing.T) {
	cfg := &Config{MailcowTimeout: time.Second}
	err := cfg.Validate("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "HTTP_LISTEN_ADDR")
	assert.Contains(t, err.Error(), "MODULE_API_KEY")
	assert.Contains(t, err.Error(), "PASSWORD_ENCRYPTION_KEY")
}

func TestValidate_API_ShortAPIKey(t *testing.T) {
	cfg := validAPIConfig()
	cfg.ModuleAPIKey = "short"
	err := cfg.Validate("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestValidate_Migrate_MissingFields(t *testing.T) {
	cfg := &Config{MailcowTimeout: time.Second}
	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.NotContains(t, err.Error(), "MODULE_API_KEY")
}

func TestValidate_Ctl_MissingFields(t *testing.T) {
	cfg := &Config{MailcowTimeout: time.Second}
	err := cfg.Validate("ctl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL, PASSWORD_ENCRYPTION_KEY")
	assert.NotContains(t, err.Error(), "MODULE_API_KEY")
}

func TestValidate_TLS_MismatchedCertKey(t *testing.T) {
	cfg := validAPIConfig()
	cfg.HTTPTLSCert = "/path/to/cert.pem"
	err := cfg.Validate("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_TLS_CERT and HTTP_TLS_KEY must both be set")
}

func TestValidate_TLS_ClientCAWithoutCert(t *testing.T) {
	cfg := validAPIConfig()
	cfg.HTTPTLSClientCA = "/path/to/ca.pem"
	err := cfg.Validate("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_TLS_CLIENT_CA")
}

func TestValidate_AllPresent(t *testing.T) {
	cfg := validAPIConfig()
	cfg.HTTPTLSCert = "/path/to/cert.pem"
	cfg.HTTPTLSKey = "/path/to/key.pem"

	assert.NoError(t, cfg.Validate("api"))
	assert.NoError(t, cfg.Validate("migrate"))
	assert.NoError(t, cfg.Validate("ctl"))
}

func validAPIConfig() *Config {
	return &Config{
		DatabaseURL:           "postgres://localhost/billing",
		HTTPListenAddr:        ":8095",
		ModuleAPIKey:          strings.Repeat("k", 32),
		PasswordEncryptionKey: strings.Repeat("ab", 32),
		MailcowTimeout:        30 * time.Second,
	}
}
