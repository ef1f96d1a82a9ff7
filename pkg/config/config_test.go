package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventdesk/dashboard/pkg/config"
)

var envKeys = []string{
	"EVENTDESK_CONFIG", "PORT", "LOG_LEVEL", "LOG_FORMAT", "DATABASE_URL", "DATA_DIR",
	"MEDIA_STORAGE_TYPE", "MEDIA_PUBLIC_BASE_URL", "MEDIA_S3_BUCKET", "MEDIA_S3_REGION", "AWS_REGION",
	"AUTH_SIGNING_KEY", "AUTH_TOKEN_TTL", "AUTH_ALLOW_SIGNUP", "CORS_ORIGINS", "REDIS_ADDR",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "ORDERING_MODE", "ABOUT_SLOTS", "OTEL_ENABLED", "DEFAULT_LOCALE",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.True(t, cfg.LiteMode())
	assert.Equal(t, "fs", cfg.Media.StorageType)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.AllowSignup)
	assert.Equal(t, "atomic", cfg.OrderingMode)
	assert.Equal(t, 4, cfg.AboutSlots)
	assert.Equal(t, "tr", cfg.DefaultLocale)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://production:5432/db")
	t.Setenv("AUTH_TOKEN_TTL", "30m")
	t.Setenv("AUTH_ALLOW_SIGNUP", "false")
	t.Setenv("CORS_ORIGINS", "https://admin.example.com, https://preview.example.com")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("ABOUT_SLOTS", "6")
	t.Setenv("ORDERING_MODE", "sequential")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.LiteMode())
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.AllowSignup)
	assert.Equal(t, []string{"https://admin.example.com", "https://preview.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, 6, cfg.AboutSlots)
	assert.Equal(t, "sequential", cfg.OrderingMode)
	assert.Equal(t, "eu-west-1", cfg.Media.S3Region)
}

func TestLoad_YAMLOverlayThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "eventdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
media:
  storage_type: s3
  s3_bucket: event-media
auth:
  token_ttl: 2h
redis:
  addr: redis:6379
`), 0600))
	t.Setenv("EVENTDESK_CONFIG", path)
	t.Setenv("PORT", "7100")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Port, "env wins over file")
	assert.Equal(t, "s3", cfg.Media.StorageType)
	assert.Equal(t, "event-media", cfg.Media.S3Bucket)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.AboutSlots, "unset keys keep defaults")
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"ORDERING_MODE":      "optimistic",
		"ABOUT_SLOTS":        "0",
		"AUTH_TOKEN_TTL":     "soon",
		"AUTH_ALLOW_SIGNUP":  "maybe",
		"MEDIA_STORAGE_TYPE": "ftp",
		"RATE_LIMIT_RPS":     "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
