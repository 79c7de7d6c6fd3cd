package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/wayfarer/internal/api"
	"github.com/MikeSquared-Agency/wayfarer/internal/categories"
	"github.com/MikeSquared-Agency/wayfarer/internal/config"
	"github.com/MikeSquared-Agency/wayfarer/internal/dialogue"
	"github.com/MikeSquared-Agency/wayfarer/internal/dispatch"
	"github.com/MikeSquared-Agency/wayfarer/internal/geocode"
	"github.com/MikeSquared-Agency/wayfarer/internal/hermes"
	"github.com/MikeSquared-Agency/wayfarer/internal/session"
	"github.com/MikeSquared-Agency/wayfarer/internal/telegram"
)

func serve(c *cli.Context) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(true); err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("wayfarer starting", "port", cfg.Port, "provider", cfg.Provider, "telegram_mode", cfg.TelegramMode)

	comps, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	sessions, err := newSessionStore(ctx, cfg, comps, logger)
	if err != nil {
		return err
	}

	var candidates dialogue.Candidates
	if cfg.CategorySelection {
		var places categories.PlaceSource
		if comps.db != nil {
			places = comps.db
		}
		candidates = categories.Load(ctx, cfg.CategorySource, cfg.CategoryIndexPath, places, logger)
	}

	var geocoder dialogue.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		gc, err := geocode.New(cfg.GoogleMapsAPIKey, "", "ru", logger)
		if err != nil {
			return err
		}
		geocoder = gc
		logger.Info("reverse geocoding enabled")
	}

	tg := telegram.NewClient(cfg.BotToken, cfg.TelegramAPIURL, logger)
	collector := dialogue.New(tg, comps.planner, sessions, candidates, geocoder,
		dialogue.Options{ClassifyInterests: cfg.CategorySelection}, logger)

	g, gctx := errgroup.WithContext(ctx)
	events := dispatch.New(gctx, collector.Handle, logger)
	onUpdate := func(u telegram.Update) {
		if ev, ok := telegram.ToEvent(u); ok {
			events.Dispatch(ev.ChatID, ev)
		}
	}

	deps := api.Deps{
		Provider: cfg.Provider,
		Mode:     modeLabel(cfg),
		Planner:  comps.planner,
		APIToken: cfg.APIToken,
		Active:   events.Active,
	}
	if cfg.TelegramMode == config.TelegramWebhook {
		deps.Updates = onUpdate
		deps.WebhookSecret = cfg.TelegramWebhookSecret
	}
	if comps.bus != nil {
		deps.Connected = comps.bus.Connected
	}
	if comps.db != nil {
		deps.Stats = comps.db
	}
	srv := api.NewServer(cfg.Port, deps, logger)

	switch cfg.TelegramMode {
	case config.TelegramPolling:
		poller := telegram.NewPoller(tg, onUpdate, logger)
		g.Go(func() error { return poller.Run(gctx) })
	case config.TelegramNATS:
		err := comps.bus.Subscribe(hermes.SubjectTelegramUpdate, func(_ string, data []byte) {
			u, err := telegram.ParseUpdate(data)
			if err != nil {
				logger.Warn("dropping malformed update", "error", err)
				return
			}
			onUpdate(*u)
		})
		if err != nil {
			return err
		}
	}

	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if comps.bus != nil {
		if err := comps.bus.Publish(hermes.SubjectAgentRegistered, hermes.AgentRegistered{
			Agent:     "wayfarer",
			Version:   version,
			Provider:  cfg.Provider,
			Transport: cfg.TelegramMode,
			StartedAt: time.Now().UTC(),
		}); err != nil {
			logger.Warn("failed to publish registration", "error", err)
		}
	}

	logger.Info("wayfarer ready", "port", cfg.Port)

	err = g.Wait()
	logger.Info("shutting down", "active_sessions", events.Active())
	events.Wait()
	logger.Info("wayfarer stopped")
	return err
}

func newSessionStore(ctx context.Context, cfg config.Config, comps *components, logger *slog.Logger) (session.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("sessions kept in memory", "ttl", cfg.SessionTTL)
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}

	rs, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	comps.closers = append(comps.closers, func() {
		if err := rs.Close(); err != nil {
			logger.Warn("failed to close redis", "error", err)
		}
	})
	logger.Info("sessions kept in redis", "ttl", cfg.SessionTTL)
	return rs, nil
}
