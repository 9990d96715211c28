package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_PATH", "PORT", "DATA_DIR", "DB_PATH", "API_BASE_URL",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "WEBHOOK_PUBLIC_URL", "OPENAI_API_KEY",
		"WATCH_CRON", "MAX_RENDER_POINTS", "CHART_CACHE_TTL", "FEED_RPS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9095", cfg.Port)
	assert.Equal(t, "http://127.0.0.1:9095", cfg.APIBaseURL)
	assert.Equal(t, "@every 5m", cfg.WatchCron)
	assert.Equal(t, 1600, cfg.MaxRenderPoints)
	assert.Equal(t, time.Minute, cfg.ChartCacheTTL)
	assert.False(t, cfg.BotEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"8080\"\ndata_dir: /srv/results\nmax_render_points: 800\nchart_cache_ttl: 2m\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DATA_DIR", "/override")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/override", cfg.DataDir)
	assert.Equal(t, 800, cfg.MaxRenderPoints)
	assert.Equal(t, 2*time.Minute, cfg.ChartCacheTTL)
	assert.Equal(t, int64(-1001), cfg.TelegramChatID)
}

func TestLoadBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_RENDER_POINTS", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	bad := cfg
	bad.Port = "http"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.TelegramToken = "token"
	assert.Error(t, bad.Validate())
	bad.WebhookPublicURL = "https://example.org/telegram/webhook"
	assert.NoError(t, bad.Validate())
	assert.True(t, bad.BotEnabled())
}
