package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"mirror_bot/internal/article"
	"mirror_bot/internal/bot"
	"mirror_bot/internal/config"
	"mirror_bot/internal/domains"
	"mirror_bot/internal/fetcher"
	"mirror_bot/internal/mirror"
	"mirror_bot/internal/ratelimit"
	"mirror_bot/internal/scheduler"
	"mirror_bot/internal/storage"
	"mirror_bot/internal/summarizer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat)

	registry, err := loadRegistry(cfg.DomainsFile)
	if err != nil {
		log.Error("load domains", "path", cfg.DomainsFile, "error", err)
		os.Exit(1)
	}
	log.Info("domains loaded", "sites", registry.Len())

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	client := &http.Client{}

	prober := mirror.NewProber(client, cfg.ProbeTimeout, log)
	remote := mirror.NewShortenerClient(client, cfg.ShortenerURL, cfg.ShortenerToken, cfg.ShortenerTimeout)
	shortener := mirror.NewShortener(remote, log)
	resolver := mirror.NewResolver(registry, prober, shortener, log)

	limiter := ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitMax, cfg.RateLimitCleanup, log)
	feeds := fetcher.New(client)

	svc := bot.Services{
		Store:    store,
		Registry: registry,
		Resolver: resolver,
		Limiter:  limiter,
		Articles: article.New(client, log),
		Feeds:    feeds,
	}
	if cfg.SummariesEnabled() {
		svc.Summarizer = summarizer.New(client, cfg.GeminiAPIKey, cfg.GeminiModel)
		log.Info("summaries enabled", "model", cfg.GeminiModel)
	}

	b, err := bot.New(cfg.TelegramBotToken, cfg, svc, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(store, feeds, resolver, b, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot")

	go limiter.Run(ctx)
	go func() {
		if err := sched.Run(ctx, cfg.PollSchedule); err != nil {
			log.Error("scheduler stopped", "error", err)
		}
	}()

	b.Run(ctx)

	log.Info("bot stopped")
}

func loadRegistry(path string) (*domains.Registry, error) {
	if path == "" {
		return domains.Default()
	}
	return domains.LoadFile(path)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
