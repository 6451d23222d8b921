package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config describes runtime configuration for media-bot.
type Config struct {
	// ServiceName is a human-friendly service name for logs.
	ServiceName string `env:"MEDIA_BOT_SERVICE_NAME" envDefault:"media-bot"`
	// HTTPHost is the HTTP listen host for health and webhook endpoints.
	HTTPHost string `env:"MEDIA_BOT_HTTP_HOST" envDefault:"0.0.0.0"`
	// HTTPPort is the HTTP listen port.
	HTTPPort int `env:"MEDIA_BOT_HTTP_PORT" envDefault:"8080"`
	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string `env:"MEDIA_BOT_LOG_LEVEL" envDefault:"info"`
	// Lang selects message language (en or es).
	Lang string `env:"MEDIA_BOT_LANG" envDefault:"en"`
	// Token is the Telegram bot token.
	Token string `env:"MEDIA_BOT_TOKEN,required"`
	// ChatID restricts the bot to one chat when non-zero.
	ChatID int64 `env:"MEDIA_BOT_CHAT_ID"`
	// FFmpegPath points at the transcoder binary.
	FFmpegPath string `env:"MEDIA_BOT_FFMPEG_PATH" envDefault:"ffmpeg"`
	// InstallYTDLP downloads a yt-dlp binary on startup when none is present.
	InstallYTDLP bool `env:"MEDIA_BOT_INSTALL_YTDLP" envDefault:"false"`
	// WebhookURL enables webhook mode when set with WebhookSecret.
	WebhookURL string `env:"MEDIA_BOT_WEBHOOK_URL"`
	// WebhookSecret is the Telegram webhook secret token.
	WebhookSecret string `env:"MEDIA_BOT_WEBHOOK_SECRET"`
	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration `env:"MEDIA_BOT_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}

	cfg.Lang = strings.ToLower(strings.TrimSpace(cfg.Lang))
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}

	if strings.TrimSpace(cfg.FFmpegPath) == "" {
		return Config{}, fmt.Errorf("ffmpeg path is required")
	}
	if strings.TrimSpace(cfg.HTTPHost) == "" {
		return Config{}, fmt.Errorf("http host is required")
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("http port must be between 1 and 65535")
	}
	if (cfg.WebhookURL == "") != (cfg.WebhookSecret == "") {
		return Config{}, fmt.Errorf("webhook url and secret must be set together")
	}

	return cfg, nil
}

// HTTPAddr returns a listen address for the HTTP server.
func (c Config) HTTPAddr() string {
	return net.JoinHostPort(strings.TrimSpace(c.HTTPHost), fmt.Sprintf("%d", c.HTTPPort))
}

// WebhookEnabled reports whether webhook mode is configured.
func (c Config) WebhookEnabled() bool {
	return c.WebhookURL != "" && c.WebhookSecret != ""
}
