package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "not-a-number")
	t.Setenv("ADMIN_SIGNUP_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "locarto", cfg.ServiceName)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.Security.LoginRatePerMin)
	assert.True(t, cfg.Server.AdminSignupEnabled)
	assert.Equal(t, "locarto_session", cfg.JWT.CookieName)
	assert.Equal(t, 15*time.Minute, cfg.Integrations.Storage.UploadURLExpiry)
}

func TestIntegrationsFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locarto.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
integrations:
  shipping:
    base_url: https://track.example
    rate_per_minute: 30
  storage:
    bucket: uploads-test
    upload_url_expiry: 5m
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PAYMENT_KEY_ID", "rzp_env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://track.example", cfg.Integrations.Shipping.BaseURL)
	assert.Equal(t, 30, cfg.Integrations.Shipping.RatePerMinute)
	assert.Equal(t, "uploads-test", cfg.Integrations.Storage.Bucket)
	assert.Equal(t, 5*time.Minute, cfg.Integrations.Storage.UploadURLExpiry)
	// keys absent from the file keep their environment values
	assert.Equal(t, "rzp_env", cfg.Integrations.Payment.KeyID)
	assert.Equal(t, "locarto-warehouse", cfg.Integrations.Shipping.PickupName)
}

func TestIntegrationsFileMissing(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "locarto", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=locarto sslmode=disable", c.GetDSN())
}
