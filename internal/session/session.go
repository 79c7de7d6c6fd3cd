package session

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

// State is the conversation step a chat is in.
type State string

const (
	Idle              State = "idle"
	AwaitingInterests State = "awaiting_interests"
	AwaitingTime      State = "awaiting_time"
	AwaitingLocation  State = "awaiting_location"
)

// Session is everything remembered about one chat between messages.
type Session struct {
	State     State     `json:"state"`
	Form      tour.Form `json:"form"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps sessions keyed by chat id. Get on an unknown chat returns an
// Idle session and no error.
type Store interface {
	Get(ctx context.Context, chatID int64) (Session, error)
	Put(ctx context.Context, chatID int64, s Session) error
	Delete(ctx context.Context, chatID int64) error
}

func idle() Session {
	return Session{State: Idle}
}
