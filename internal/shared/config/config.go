package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv        string
	EncryptionKey string
	Postgres      PostgresConfig
	HTTP          HTTPConfig
	Push          PushConfig
	Waiter        WaiterConfig
	Bot           BotConfig
}

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	URL string
}

// HTTPConfig holds the control API settings.
type HTTPConfig struct {
	ListenAddr string
}

// PushConfig tunes the push test sequence and the loopback backend.
type PushConfig struct {
	ClientID        string
	WaitTimeout     time.Duration // Bound on every delivery wait
	DeliveryLatency time.Duration // Simulated backend latency
	BackgroundDelay time.Duration // Delay before "background" publishes
}

// WaiterConfig selects the correlation waiter implementation.
type WaiterConfig struct {
	Mode      string        // "keyed" or "slot"
	Retention time.Duration // How long the keyed waiter keeps unclaimed events
}

// BotConfig holds the Telegram control bot settings.
type BotConfig struct {
	Token       string
	AdminChatID int64
	Connection  BotConnectionConfig
}

// BotConnectionConfig selects polling or webhook mode.
type BotConnectionConfig struct {
	Mode    string // "polling" or "webhook"
	Polling PollingConfig
	Webhook WebhookConfig
}

// PollingConfig holds the polling worker settings.
type PollingConfig struct {
	WorkerPoolSize int
}

// WebhookConfig holds the webhook listener settings.
type WebhookConfig struct {
	URL        string
	ListenPort int
}

// Enabled reports whether a bot token was configured.
func (b BotConfig) Enabled() bool {
	return b.Token != ""
}

// envBindings maps viper keys to environment variable names.
var envBindings = map[string]string{
	"app.env":                 "APP_ENV",
	"encryption.key":          "ENCRYPTION_KEY",
	"postgres.url":            "DATABASE_URL",
	"http.listen_addr":        "HTTP_LISTEN_ADDR",
	"push.client_id":          "PUSH_CLIENT_ID",
	"push.wait_timeout":       "PUSH_WAIT_TIMEOUT",
	"push.delivery_latency":   "PUSH_DELIVERY_LATENCY",
	"push.background_delay":   "PUSH_BACKGROUND_DELAY",
	"waiter.mode":             "WAITER_MODE",
	"waiter.retention":        "WAITER_RETENTION",
	"bot.token":               "BOT_TOKEN",
	"bot.admin_chat_id":       "BOT_ADMIN_CHAT_ID",
	"bot.mode":                "BOT_MODE",
	"bot.polling.worker_pool": "BOT_WORKER_POOL_SIZE",
	"bot.webhook.url":         "BOT_WEBHOOK_URL",
	"bot.webhook.port":        "BOT_WEBHOOK_PORT",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// A missing .env is fine, we fall back to the process environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	v.SetDefault("app.env", "dev")
	v.SetDefault("http.listen_addr", "127.0.0.1:8080")
	v.SetDefault("push.client_id", "pushprobe-device")
	v.SetDefault("push.wait_timeout", 30*time.Second)
	v.SetDefault("push.delivery_latency", 50*time.Millisecond)
	v.SetDefault("push.background_delay", time.Second)
	v.SetDefault("waiter.mode", "keyed")
	v.SetDefault("waiter.retention", 10*time.Minute)
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.polling.worker_pool", 4)

	cfg := Config{
		AppEnv:        v.GetString("app.env"),
		EncryptionKey: v.GetString("encryption.key"),
		Postgres:      PostgresConfig{URL: v.GetString("postgres.url")},
		HTTP:          HTTPConfig{ListenAddr: v.GetString("http.listen_addr")},
		Push: PushConfig{
			ClientID:        v.GetString("push.client_id"),
			WaitTimeout:     v.GetDuration("push.wait_timeout"),
			DeliveryLatency: v.GetDuration("push.delivery_latency"),
			BackgroundDelay: v.GetDuration("push.background_delay"),
		},
		Waiter: WaiterConfig{
			Mode:      v.GetString("waiter.mode"),
			Retention: v.GetDuration("waiter.retention"),
		},
		Bot: BotConfig{
			Token:       v.GetString("bot.token"),
			AdminChatID: v.GetInt64("bot.admin_chat_id"),
			Connection: BotConnectionConfig{
				Mode:    v.GetString("bot.mode"),
				Polling: PollingConfig{WorkerPoolSize: v.GetInt("bot.polling.worker_pool")},
				Webhook: WebhookConfig{
					URL:        v.GetString("bot.webhook.url"),
					ListenPort: v.GetInt("bot.webhook.port"),
				},
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.EncryptionKey == "" {
		return errors.New("ENCRYPTION_KEY is not set in environment or .env file")
	}
	if len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(c.EncryptionKey))
	}
	if c.Postgres.URL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.Push.WaitTimeout <= 0 {
		return fmt.Errorf("PUSH_WAIT_TIMEOUT must be positive, got %s", c.Push.WaitTimeout)
	}
	if c.Push.DeliveryLatency < 0 || c.Push.BackgroundDelay < 0 {
		return errors.New("push delays must not be negative")
	}
	switch c.Waiter.Mode {
	case "keyed", "slot":
	default:
		return fmt.Errorf("unknown WAITER_MODE: %s", c.Waiter.Mode)
	}
	if c.Waiter.Retention < c.Push.WaitTimeout {
		return fmt.Errorf("WAITER_RETENTION (%s) must not be shorter than PUSH_WAIT_TIMEOUT (%s)", c.Waiter.Retention, c.Push.WaitTimeout)
	}
	if c.Bot.Enabled() {
		// Both connection modes dispatch updates through the worker pool.
		if c.Bot.Connection.Polling.WorkerPoolSize < 1 {
			return errors.New("BOT_WORKER_POOL_SIZE must be at least 1")
		}
		switch c.Bot.Connection.Mode {
		case "polling":
		case "webhook":
			if c.Bot.Connection.Webhook.URL == "" || c.Bot.Connection.Webhook.ListenPort == 0 {
				return errors.New("webhook mode requires BOT_WEBHOOK_URL and BOT_WEBHOOK_PORT")
			}
		default:
			return fmt.Errorf("unknown BOT_MODE: %s", c.Bot.Connection.Mode)
		}
	}
	return nil
}
