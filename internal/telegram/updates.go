package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/wayfarer/internal/dialogue"
)

// Update is the subset of a Telegram update this bot consumes.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64     `json:"message_id"`
	From      *User     `json:"from,omitempty"`
	Chat      Chat      `json:"chat"`
	Text      string    `json:"text,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ParseUpdate decodes a raw update, as forwarded over NATS or received by webhook.
func ParseUpdate(data []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parse update: %w", err)
	}
	return &u, nil
}

// ToEvent maps an update to a dialogue event. Updates carrying neither text
// nor a location are not events.
func ToEvent(u Update) (dialogue.Event, bool) {
	m := u.Message
	if m == nil {
		return dialogue.Event{}, false
	}

	switch {
	case m.Location != nil:
		return dialogue.Event{
			ChatID:    m.Chat.ID,
			Kind:      dialogue.EventLocation,
			Latitude:  m.Location.Latitude,
			Longitude: m.Location.Longitude,
		}, true
	case isStart(m.Text):
		return dialogue.Event{ChatID: m.Chat.ID, Kind: dialogue.EventStart, Text: m.Text}, true
	case m.Text != "":
		return dialogue.Event{ChatID: m.Chat.ID, Kind: dialogue.EventText, Text: m.Text}, true
	}
	return dialogue.Event{}, false
}

// isStart matches "/start", "/start payload" and "/start@botname".
func isStart(text string) bool {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/start"
}

// Poller feeds long-polled updates to a handler.
type Poller struct {
	client  *Client
	handle  func(Update)
	timeout time.Duration
	backoff time.Duration
	logger  *slog.Logger
}

func NewPoller(client *Client, handle func(Update), logger *slog.Logger) *Poller {
	return &Poller{
		client:  client,
		handle:  handle,
		timeout: 25 * time.Second,
		backoff: 3 * time.Second,
		logger:  logger,
	}
}

// Run polls until ctx is done. Every fetched update is acknowledged by
// advancing the offset, whether or not it maps to an event.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn("failed to clear webhook", "error", err)
	}
	p.logger.Info("telegram polling started")

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			p.handle(u)
		}
	}
}
