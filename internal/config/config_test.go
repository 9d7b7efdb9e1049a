package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "ENV", "HTTP_ADDR", "DATABASE_URL", "JWT_SECRET", "JWT_TTL", "REDIS_ADDR",
		"REFDATA_FILE", "FEED_SERVER_WINDOW", "FEED_DEFAULT_LIMIT", "NOTIFICATION_RETENTION",
		"NOTIFICATION_CLEANUP_CRON", "SUBSCRIPTION_POLL", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "jobmarket.db", cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 100, cfg.FeedServerWindow)
	assert.Equal(t, 20, cfg.FeedDefaultLimit)
	assert.Equal(t, 90*24*time.Hour, cfg.NotificationRetention)
	assert.Equal(t, "@daily", cfg.NotificationCleanupCron)
	assert.Zero(t, cfg.SubscriptionPoll)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("SUBSCRIPTION_POLL", "5s")
	t.Setenv("FEED_SERVER_WINDOW", "50")
	t.Setenv("FEED_DEFAULT_LIMIT", "10")
	t.Setenv("NOTIFICATION_CLEANUP_CRON", "0 3 * * *")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, ,https://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.SubscriptionPoll)
	assert.Equal(t, 50, cfg.FeedServerWindow)
	assert.Equal(t, 10, cfg.FeedDefaultLimit)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSAllowedOrigins)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"JWT_TTL": "soon"}},
		{"negative poll", map[string]string{"SUBSCRIPTION_POLL": "-1s"}},
		{"bad window", map[string]string{"FEED_SERVER_WINDOW": "many"}},
		{"limit above window", map[string]string{"FEED_SERVER_WINDOW": "10", "FEED_DEFAULT_LIMIT": "20"}},
		{"bad cron", map[string]string{"NOTIFICATION_CLEANUP_CRON": "every day"}},
		{"default secret in prod", map[string]string{"APP_ENV": "production", "JWT_SECRET": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
