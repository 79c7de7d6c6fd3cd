package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/MikeSquared-Agency/wayfarer/internal/categories"
	"github.com/MikeSquared-Agency/wayfarer/internal/config"
	"github.com/MikeSquared-Agency/wayfarer/internal/store"
	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

func plan(c *cli.Context) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(false); err != nil {
		return err
	}
	if c.Int("hours") <= 0 {
		return errors.New("--hours must be positive")
	}

	comps, err := build(c.Context, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer comps.Close()

	msg, err := comps.planner.Plan(c.Context, 0, tour.Form{
		Interests: c.String("interests"),
		Hours:     c.Int("hours"),
		Location:  c.String("location"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, msg)
	return nil
}

func importPlaces(c *cli.Context) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	idx, err := categories.LoadFile(c.String("file"))
	if err != nil {
		return err
	}

	db, err := store.New(c.Context, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	n, err := db.ReplaceCategories(c.Context, idx)
	if err != nil {
		return err
	}
	slog.Info("places imported", "file", c.String("file"), "categories", len(idx), "places", n)
	return nil
}
