package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
	// APIBaseURL is where the dashboard client reads the API from. It
	// defaults to this process's own listener.
	APIBaseURL string `yaml:"api_base_url"`

	TelegramToken    string `yaml:"telegram_bot_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
	WebhookPublicURL string `yaml:"webhook_public_url"`
	OpenAIKey        string `yaml:"openai_api_key"`

	WatchCron       string        `yaml:"watch_cron"`
	MaxRenderPoints int           `yaml:"max_render_points"`
	ChartCacheTTL   time.Duration `yaml:"chart_cache_ttl"`
	FeedRPS         float64       `yaml:"feed_rps"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// BotEnabled reports whether enough is configured to run the Telegram bot.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != "" && c.WebhookPublicURL != ""
}

// Load reads .env (if present), then the YAML file named by CONFIG_PATH
// (if set), then environment overrides, then defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	envString(&cfg.Port, "PORT")
	envString(&cfg.DataDir, "DATA_DIR")
	envString(&cfg.DBPath, "DB_PATH")
	envString(&cfg.APIBaseURL, "API_BASE_URL")
	envString(&cfg.TelegramToken, "TELEGRAM_BOT_TOKEN")
	envString(&cfg.WebhookPublicURL, "WEBHOOK_PUBLIC_URL")
	envString(&cfg.OpenAIKey, "OPENAI_API_KEY")
	envString(&cfg.WatchCron, "WATCH_CRON")
	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.LogFormat, "LOG_FORMAT")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	if v := os.Getenv("MAX_RENDER_POINTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("MAX_RENDER_POINTS: %w", err)
		}
		cfg.MaxRenderPoints = n
	}
	if v := os.Getenv("CHART_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CHART_CACHE_TTL: %w", err)
		}
		cfg.ChartCacheTTL = d
	}
	if v := os.Getenv("FEED_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("FEED_RPS: %w", err)
		}
		cfg.FeedRPS = f
	}

	// Defaults
	if cfg.Port == "" {
		cfg.Port = "9095"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "/app/data/results"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "/app/data/regimes.db"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://127.0.0.1:" + cfg.Port
	}
	if cfg.WatchCron == "" {
		cfg.WatchCron = "@every 5m"
	}
	if cfg.MaxRenderPoints == 0 {
		cfg.MaxRenderPoints = 1600
	}
	if cfg.ChartCacheTTL == 0 {
		cfg.ChartCacheTTL = 60 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port %q is not a number", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.MaxRenderPoints < 0 {
		return fmt.Errorf("max_render_points must not be negative")
	}
	if c.FeedRPS < 0 {
		return fmt.Errorf("feed_rps must not be negative")
	}
	if c.TelegramToken != "" && c.WebhookPublicURL == "" {
		return fmt.Errorf("webhook_public_url is required when telegram_bot_token is set")
	}
	return nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
