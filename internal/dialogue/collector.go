package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/wayfarer/internal/categories"
	"github.com/MikeSquared-Agency/wayfarer/internal/route"
	"github.com/MikeSquared-Agency/wayfarer/internal/session"
)

type Options struct {
	// ClassifyInterests enables category classification and candidate
	// pre-selection after the interests step.
	ClassifyInterests bool
}

// Collector drives the conversation for every chat. Handle must not be called
// concurrently for the same chat id.
type Collector struct {
	sender     Sender
	planner    Planner
	sessions   session.Store
	candidates Candidates
	geocoder   Geocoder
	opts       Options
	logger     *slog.Logger
}

// New builds a collector. candidates and geocoder may be nil.
func New(sender Sender, planner Planner, sessions session.Store, candidates Candidates, geocoder Geocoder, opts Options, logger *slog.Logger) *Collector {
	return &Collector{
		sender:     sender,
		planner:    planner,
		sessions:   sessions,
		candidates: candidates,
		geocoder:   geocoder,
		opts:       opts,
		logger:     logger,
	}
}

// Handle applies one event to the chat's session.
func (c *Collector) Handle(ctx context.Context, ev Event) {
	log := c.logger.With("chat_id", ev.ChatID, "event", ev.Kind.String())

	if ev.Kind == EventStart {
		c.start(ctx, ev, log)
		return
	}

	s, err := c.sessions.Get(ctx, ev.ChatID)
	if err != nil {
		log.Error("failed to load session", "error", err)
		s = session.Session{State: Idle}
	}
	log = log.With("state", string(s.State))

	switch s.State {
	case AwaitingInterests:
		c.onInterests(ctx, ev, s, log)
	case AwaitingTime:
		c.onTime(ctx, ev, s, log)
	case AwaitingLocation:
		c.onLocation(ctx, ev, s, log)
	default:
		c.send(ctx, ev.ChatID, Message{Text: TextStartHint}, log)
	}
}

func (c *Collector) start(ctx context.Context, ev Event, log *slog.Logger) {
	log.Info("conversation started")
	c.save(ctx, ev.ChatID, session.Session{State: AwaitingInterests}, log)
	c.send(ctx, ev.ChatID, Message{Text: TextGreeting, RemoveKeyboard: true}, log)

	if c.opts.ClassifyInterests && !c.catalogAvailable() {
		c.send(ctx, ev.ChatID, Message{Text: TextCatalogOff}, log)
	}
}

func (c *Collector) onInterests(ctx context.Context, ev Event, s session.Session, log *slog.Logger) {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != EventText || text == "" {
		c.send(ctx, ev.ChatID, Message{Text: TextAskInterests}, log)
		return
	}

	s.Form.Interests = text
	s.Form.Candidates = nil
	log.Debug("interests received", "interests", text)

	if c.opts.ClassifyInterests && c.catalogAvailable() {
		key, err := c.planner.Classify(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("interests not classified", "error", err)
			c.send(ctx, ev.ChatID, Message{Text: TextUnknownTopic}, log)
			return
		}
		s.Form.Candidates = c.candidates.Sample(key, categories.SampleSize)
		if len(s.Form.Candidates) == 0 {
			log.Warn("category has no places", "category", key)
			c.send(ctx, ev.ChatID, Message{Text: TextUnknownTopic}, log)
			return
		}
		log.Info("candidates selected", "category", key, "candidates", len(s.Form.Candidates))
	}

	s.State = AwaitingTime
	c.save(ctx, ev.ChatID, s, log)
	c.send(ctx, ev.ChatID, Message{Text: TextAskTime}, log)
}

func (c *Collector) onTime(ctx context.Context, ev Event, s session.Session, log *slog.Logger) {
	hours, ok := parseHours(ev.Text)
	if ev.Kind != EventText || !ok {
		log.Warn("invalid time input", "text", ev.Text)
		c.send(ctx, ev.ChatID, Message{Text: TextInvalidTime}, log)
		return
	}

	s.Form.Hours = hours
	s.State = AwaitingLocation
	c.save(ctx, ev.ChatID, s, log)
	c.send(ctx, ev.ChatID, Message{Text: TextAskLocation, RequestLocation: true}, log)
}

func (c *Collector) onLocation(ctx context.Context, ev Event, s session.Session, log *slog.Logger) {
	var loc string
	switch ev.Kind {
	case EventLocation:
		loc = c.describeCoordinates(ctx, ev.Latitude, ev.Longitude, log)
	case EventText:
		loc = strings.TrimSpace(ev.Text)
	}
	if loc == "" {
		c.send(ctx, ev.ChatID, Message{Text: TextAskLocation, RequestLocation: true}, log)
		return
	}

	form := s.Form
	form.Location = loc

	// Back to Idle before the round trip, whatever its outcome.
	if err := c.sessions.Delete(ctx, ev.ChatID); err != nil {
		log.Error("failed to reset session", "error", err)
	}

	log.Info("form complete", "hours", form.Hours, "candidates", len(form.Candidates))
	c.send(ctx, ev.ChatID, Message{Text: TextGenerating, RemoveKeyboard: true}, log)

	msg, err := c.planner.Plan(ctx, ev.ChatID, form)
	if ctx.Err() != nil {
		log.Info("generation abandoned", "error", ctx.Err())
		return
	}
	if err != nil {
		var pe *route.ParseError
		if errors.As(err, &pe) {
			c.send(ctx, ev.ChatID, Message{Text: TextMalformed}, log)
			return
		}
		log.Warn("route generation failed", "error", err)
		c.send(ctx, ev.ChatID, Message{Text: TextFailed}, log)
		return
	}

	c.send(ctx, ev.ChatID, Message{Text: msg, Markdown: true}, log)
}

func (c *Collector) describeCoordinates(ctx context.Context, lat, lon float64, log *slog.Logger) string {
	loc := fmt.Sprintf("координаты %s, %s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
	)
	if c.geocoder == nil {
		return loc
	}

	address, err := c.geocoder.Describe(ctx, lat, lon)
	if err != nil {
		log.Warn("reverse geocoding failed", "error", err)
		return loc
	}
	if address == "" {
		return loc
	}
	return loc + " (" + address + ")"
}

func (c *Collector) catalogAvailable() bool {
	return c.candidates != nil && c.candidates.Available()
}

func (c *Collector) save(ctx context.Context, chatID int64, s session.Session, log *slog.Logger) {
	if err := c.sessions.Put(ctx, chatID, s); err != nil {
		log.Error("failed to save session", "error", err)
	}
}

func (c *Collector) send(ctx context.Context, chatID int64, msg Message, log *slog.Logger) {
	if err := c.sender.Send(ctx, chatID, msg); err != nil {
		log.Error("failed to send message", "error", err)
	}
}

// parseHours accepts only a positive whole number written with ASCII digits.
func parseHours(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
