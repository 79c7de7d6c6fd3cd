package dialogue

import (
	"context"

	"github.com/MikeSquared-Agency/wayfarer/internal/session"
	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

type State = session.State

const (
	Idle              = session.Idle
	AwaitingInterests = session.AwaitingInterests
	AwaitingTime      = session.AwaitingTime
	AwaitingLocation  = session.AwaitingLocation
)

// EventKind is the kind of inbound chat event.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventText
	EventLocation
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventText:
		return "text"
	case EventLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Event is one inbound message from a chat.
type Event struct {
	ChatID    int64
	Kind      EventKind
	Text      string
	Latitude  float64
	Longitude float64
}

// Message is one outbound reply.
type Message struct {
	Text            string
	Markdown        bool
	RequestLocation bool
	RemoveKeyboard  bool
}

type Sender interface {
	Send(ctx context.Context, chatID int64, msg Message) error
}

// Planner produces the final route message and classifies interests.
type Planner interface {
	Plan(ctx context.Context, chatID int64, form tour.Form) (string, error)
	Classify(ctx context.Context, interests string) (string, error)
}

// Candidates samples places for a category.
type Candidates interface {
	Available() bool
	Sample(key string, n int) []tour.Place
}

// Geocoder turns a coordinate pair into a human-readable address.
type Geocoder interface {
	Describe(ctx context.Context, lat, lon float64) (string, error)
}

// User-facing texts.
const (
	TextGreeting = "Привет! Я твой AI-гид по Нижнему Новгороду.\n" +
		"Расскажи, что тебе интересно? 🤔\n" +
		"(например: 🎨 стрит-арт, 🏰 история, ☕️ кофейни)"
	TextAskTime        = "Отлично! Сколько у тебя свободного времени⏳ на прогулку (в часах)?"
	TextInvalidTime    = "Пожалуйста, введи количество часов цифрой (например, 3)."
	TextAskLocation    = "Принято. Теперь отправь свою геолокацию📍 или напиши адрес, откуда начнем."
	TextGenerating     = "Супер! Все данные получил. 🧠 Составляю твой уникальный маршрут... Это может занять около минуты."
	TextFailed         = "Не удалось сгенерировать маршрут. Попробуйте позже."
	TextMalformed      = "Получен некорректный ответ от AI, не могу построить маршрут. Пожалуйста, попробуйте изменить запрос."
	TextAskInterests   = "Расскажи, что тебе интересно, например: музеи, парки или кофейни."
	TextUnknownTopic   = "Не получилось понять, что тебе интересно. Попробуй описать иначе (например: музеи, парки, кофейни)."
	TextCatalogOff     = "Подборка мест сейчас недоступна, маршрут будет составлен без неё."
	TextStartHint      = "Чтобы составить маршрут, отправь /start."
	TextLocationButton = "📍 Отправить геолокацию"
)
