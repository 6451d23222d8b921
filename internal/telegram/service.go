package telegram

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mymmrac/telego"

	"github.com/chatmedia/media-bot/internal/config"
	"github.com/chatmedia/media-bot/internal/i18n"
	"github.com/chatmedia/media-bot/internal/pipeline"
	"github.com/chatmedia/media-bot/internal/resolve"
	"github.com/chatmedia/media-bot/internal/telegram/handlers"
	"github.com/chatmedia/media-bot/internal/telegram/updates"
)

// Service manages the Telegram bot lifecycle and the media command handlers.
type Service struct {
	bot     *telego.Bot
	source  updates.Source
	handler *handlers.Handler
	log     *slog.Logger
}

// New creates a new Telegram service with both media handlers wired in.
func New(cfg config.Config, bundle i18n.Bundle, log *slog.Logger) (*Service, error) {
	bot, err := telego.NewBot(cfg.Token, telego.WithLogger(telegoLogger{log: log}))
	if err != nil {
		return nil, err
	}

	var source updates.Source
	if cfg.WebhookEnabled() {
		source = updates.NewWebhook(bot, cfg.WebhookURL, cfg.WebhookSecret, log)
	} else {
		source = updates.NewLongPolling(bot, log)
	}

	transcoder := &pipeline.Transcoder{BinPath: cfg.FFmpegPath, Log: log}
	handler := handlers.New(
		botSender{bot: bot},
		resolve.NewYouTube(log),
		resolve.NewTikTok(log),
		transcoder,
		bundle.Messages,
		cfg.ChatID,
		log,
	)
	log.Info("media handlers loaded OK", "lang", bundle.Lang, "ffmpeg", cfg.FFmpegPath)

	return &Service{bot: bot, source: source, handler: handler, log: log}, nil
}

// Start begins receiving Telegram updates.
func (s *Service) Start(ctx context.Context) error {
	if err := s.source.Start(ctx); err != nil {
		return err
	}
	go s.handler.Run(ctx, s.source.Updates())
	return nil
}

// Stop shuts down Telegram update processing.
func (s *Service) Stop(ctx context.Context) error {
	return s.source.Stop(ctx)
}

// WebhookHandler returns the webhook HTTP handler if enabled.
func (s *Service) WebhookHandler() http.Handler {
	return s.source.Handler()
}
