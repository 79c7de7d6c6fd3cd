package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/wayfarer/internal/completion"
	"github.com/MikeSquared-Agency/wayfarer/internal/config"
	"github.com/MikeSquared-Agency/wayfarer/internal/gemini"
	"github.com/MikeSquared-Agency/wayfarer/internal/hermes"
	"github.com/MikeSquared-Agency/wayfarer/internal/planner"
	"github.com/MikeSquared-Agency/wayfarer/internal/prompt"
	"github.com/MikeSquared-Agency/wayfarer/internal/store"
	"github.com/MikeSquared-Agency/wayfarer/internal/yandexgpt"
)

// components holds what every command shares. Optional backends are nil when
// not configured.
type components struct {
	db      *store.Store
	bus     *hermes.Client
	planner *planner.Planner
	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*components, error) {
	c := &components{}

	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		c.db = db
		c.closers = append(c.closers, db.Close)
		logger.Info("database connected")
	}

	if cfg.NatsURL != "" {
		bus, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		c.bus = bus
		c.closers = append(c.closers, bus.Close)
		logger.Info("NATS connected", "url", cfg.NatsURL)
	}

	llm, err := newCompleter(ctx, cfg, c, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	var (
		recorder planner.Recorder
		notifier planner.Notifier
	)
	if c.db != nil {
		recorder = c.db
	}
	if c.bus != nil {
		notifier = c.bus
	}

	c.planner = planner.New(llm, recorder, notifier, planner.Options{
		Provider:    cfg.Provider,
		Mode:        modeLabel(cfg),
		Format:      prompt.Format(cfg.OutputFormat),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, logger)
	return c, nil
}

func newCompleter(ctx context.Context, cfg config.Config, c *components, logger *slog.Logger) (completion.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		p, err := gemini.NewProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.RequestTimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("create gemini provider: %w", err)
		}
		c.closers = append(c.closers, func() {
			if err := p.Close(); err != nil {
				logger.Warn("failed to close gemini client", "error", err)
			}
		})
		logger.Info("gemini provider ready", "model", cfg.GeminiModel)
		return p, nil
	default:
		client := yandexgpt.NewClient(cfg.YandexAPIKey, cfg.FolderID, cfg.YandexModel, yandexgpt.Options{
			Timeout:         cfg.RequestTimeout,
			PollInterval:    cfg.PollInterval,
			PollMaxAttempts: cfg.PollMaxAttempts,
		}, logger)
		logger.Info("yandexgpt client ready", "model", cfg.YandexModel, "mode", cfg.CompletionMode)
		return client.Completer(yandexgpt.Mode(cfg.CompletionMode)), nil
	}
}

func modeLabel(cfg config.Config) string {
	if cfg.Provider == config.ProviderGemini {
		return "sync"
	}
	return cfg.CompletionMode
}
