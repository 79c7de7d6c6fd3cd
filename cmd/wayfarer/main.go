package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "wayfarer",
		Usage:   "Telegram walking-tour assistant",
		Version: version,
		Action:  serve,
		Commands: []*cli.Command{{
			Name:   "serve",
			Usage:  "run the bot and the HTTP API",
			Action: serve,
		}, {
			Name:  "plan",
			Usage: "generate one route and print it",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "interests", Usage: "what the walk should be about", Required: true},
				&cli.IntFlag{Name: "hours", Usage: "available time in hours", Required: true},
				&cli.StringFlag{Name: "location", Usage: "starting point", Required: true},
			},
			Action: plan,
		}, {
			Name:  "import-places",
			Usage: "replace the places table with a category index file",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "file", Usage: "category index JSON", Value: "places.json"},
			},
			Action: importPlaces,
		}},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("wayfarer failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
