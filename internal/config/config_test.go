package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultDSN, cfg.DSN)
	assert.Equal(t, defaultRedisURL, cfg.RedisURL)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, defaultIdleTTLMinutes, cfg.Session.IdleTTLMinutes)
	assert.Equal(t, defaultRotateHours, cfg.Session.RotateHours)
	assert.Equal(t, defaultTokenTTLHours, cfg.DesktopToken.TTLHours)
	assert.Equal(t, defaultExpiryReminderDays, cfg.ExpiryReminderDays)
}

func TestLoadYAML(t *testing.T) {
	raw := `
port: 8080
env: Production
dsn: user:pw@tcp(db:3306)/mw
redis_url: redis-host:6379
allowed_origins:
  - "console.example.com"
  - "  "
session:
  idle_ttl_minutes: 60
  rotate_hours: 1
desktop_token:
  ttl_hours: 48
bootstrap_admin:
  username: root
  email: root@example.com
  password: changeme
expiry_reminder_days: 3
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.IsDev())
	// Bare host:port gets a scheme so redis.ParseURL accepts it.
	assert.Equal(t, "redis://redis-host:6379", cfg.RedisURL)
	assert.Equal(t, []string{"console.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 60, cfg.Session.IdleTTLMinutes)
	assert.Equal(t, 1, cfg.Session.RotateHours)
	assert.Equal(t, 48, cfg.DesktopToken.TTLHours)
	assert.Equal(t, "root", cfg.BootstrapAdmin.Username)
	assert.Equal(t, 3, cfg.ExpiryReminderDays)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not an int"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MW_PORT", "9999")
	t.Setenv("MW_ENV", "production")
	t.Setenv("MW_DSN", "env-dsn")
	t.Setenv("MW_REDIS_URL", "redis://env-redis:6379/1")
	t.Setenv("MW_BOOTSTRAP_ADMIN_PASSWORD", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "env-dsn", cfg.DSN)
	assert.Equal(t, "redis://env-redis:6379/1", cfg.RedisURL)
	assert.Equal(t, "s3cret", cfg.BootstrapAdmin.Password)
}
