package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lrstanley/go-ytdlp"

	"github.com/chatmedia/media-bot/internal/config"
	httpapi "github.com/chatmedia/media-bot/internal/http"
	"github.com/chatmedia/media-bot/internal/i18n"
	"github.com/chatmedia/media-bot/internal/log"
	"github.com/chatmedia/media-bot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.LogLevel)
	bundle, err := i18n.Load(cfg.Lang)
	if err != nil {
		logger.Error("failed to load messages", "error", err)
		os.Exit(1)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.InstallYTDLP {
		ytdlp.MustInstall(baseCtx, nil)
		logger.Info("yt-dlp binary ready")
	}

	service, err := telegram.New(cfg, bundle, logger)
	if err != nil {
		logger.Error("failed to init telegram service", "error", err)
		os.Exit(1)
	}

	server := httpapi.New(cfg.HTTPAddr(), logger)
	if webhook := service.WebhookHandler(); webhook != nil {
		server.Handle("/webhook", webhook)
	}

	if err := service.Start(baseCtx); err != nil {
		logger.Error("failed to start telegram updates", "error", err)
		os.Exit(1)
	}
	server.SetReady(true)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown requested", "signal", sig.String())
	case err := <-errCh:
		logger.Error("http server stopped", "error", err)
	}

	cancel()
	server.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	_ = service.Stop(shutdownCtx)
}
