package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/wayfarer/internal/completion"
	"github.com/MikeSquared-Agency/wayfarer/internal/hermes"
	"github.com/MikeSquared-Agency/wayfarer/internal/prompt"
	"github.com/MikeSquared-Agency/wayfarer/internal/route"
	"github.com/MikeSquared-Agency/wayfarer/internal/store"
	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

const (
	StatusOK         = "ok"
	StatusParseError = "parse_error"
)

// ErrUnknownCategory is returned when the classification reply names no
// known category.
var ErrUnknownCategory = errors.New("unknown category")

// Recorder persists generation outcomes.
type Recorder interface {
	RecordGeneration(ctx context.Context, g store.Generation) (uuid.UUID, error)
}

// Notifier announces generation outcomes.
type Notifier interface {
	PublishRoute(ev hermes.RouteEvent) error
}

type Options struct {
	Provider    string
	Mode        string
	Format      prompt.Format
	Temperature float64
	MaxTokens   int
}

// Planner runs prompt → completion → parse → render for one form.
type Planner struct {
	llm       completion.Completer
	formatter *route.Formatter
	recorder  Recorder
	notifier  Notifier
	opts      Options
	logger    *slog.Logger
}

// New builds a planner. recorder and notifier may be nil.
func New(llm completion.Completer, recorder Recorder, notifier Notifier, opts Options, logger *slog.Logger) *Planner {
	if opts.Format == "" {
		opts.Format = prompt.FormatJSON
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	return &Planner{
		llm:       llm,
		formatter: route.NewFormatter(logger),
		recorder:  recorder,
		notifier:  notifier,
		opts:      opts,
		logger:    logger,
	}
}

// Plan returns the message to send for form. Errors are *completion.Failure,
// *route.ParseError or a context error.
func (p *Planner) Plan(ctx context.Context, chatID int64, form tour.Form) (string, error) {
	text := prompt.BuildRoute(form, p.opts.Format)
	start := time.Now()

	p.logger.Info("generating route",
		"chat_id", chatID,
		"hours", form.Hours,
		"candidates", len(form.Candidates),
		"prompt_chars", len([]rune(text)),
	)

	raw, err := p.llm.Complete(ctx, completion.Request{
		System:      prompt.System,
		Prompt:      text,
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.record(ctx, chatID, text, string(completion.KindOf(err)), operationID(err), 0, time.Since(start))
		return "", fmt.Errorf("complete route: %w", err)
	}

	if p.opts.Format == prompt.FormatText {
		p.record(ctx, chatID, text, StatusOK, "", 0, time.Since(start))
		return route.RenderText(raw), nil
	}

	r, err := route.Parse(route.Normalize(raw))
	if err != nil {
		p.logger.Error("failed to parse route response",
			"chat_id", chatID,
			"error", err,
			"raw", completion.Truncate(raw, 200),
		)
		p.record(ctx, chatID, text, StatusParseError, "", 0, time.Since(start))
		return "", err
	}

	msg := p.formatter.Render(r)
	p.record(ctx, chatID, text, StatusOK, "", len(r.Points), time.Since(start))

	p.logger.Info("route generated",
		"chat_id", chatID,
		"points", len(r.Points),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return msg, nil
}

// Classify maps free-form interests to a category key.
func (p *Planner) Classify(ctx context.Context, interests string) (string, error) {
	raw, err := p.llm.Complete(ctx, completion.Request{
		System:      prompt.System,
		Prompt:      prompt.BuildCategory(interests),
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		return "", fmt.Errorf("classify interests: %w", err)
	}

	key, ok := prompt.ParseCategory(raw)
	if !ok {
		p.logger.Warn("unrecognised category reply", "raw", completion.Truncate(raw, 200))
		return "", ErrUnknownCategory
	}
	return key, nil
}

func (p *Planner) record(ctx context.Context, chatID int64, promptText, status, opID string, points int, elapsed time.Duration) {
	g := store.Generation{
		ID:          uuid.New(),
		ChatID:      chatID,
		Provider:    p.opts.Provider,
		Mode:        p.opts.Mode,
		Status:      status,
		OperationID: opID,
		PromptChars: len([]rune(promptText)),
		Points:      points,
		Duration:    elapsed,
		CreatedAt:   time.Now().UTC(),
	}

	if p.recorder != nil {
		if _, err := p.recorder.RecordGeneration(context.WithoutCancel(ctx), g); err != nil {
			p.logger.Warn("failed to record generation", "chat_id", chatID, "error", err)
		}
	}

	if p.notifier != nil {
		ev := hermes.RouteEvent{
			ID:          g.ID.String(),
			ChatID:      g.ChatID,
			Provider:    g.Provider,
			Mode:        g.Mode,
			Status:      g.Status,
			OperationID: g.OperationID,
			PromptChars: g.PromptChars,
			Points:      g.Points,
			DurationMs:  g.Duration.Milliseconds(),
			CreatedAt:   g.CreatedAt,
		}
		if err := p.notifier.PublishRoute(ev); err != nil {
			p.logger.Warn("failed to publish route event", "chat_id", chatID, "error", err)
		}
	}
}

func operationID(err error) string {
	var f *completion.Failure
	if errors.As(err, &f) {
		return f.OperationID
	}
	return ""
}
