package route

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	placeholder      = "Не указано"
	defaultTitle     = "Ваш пешеходный маршрут"
	defaultPointName = "Без названия"

	// RenderFailed replaces a message that could not be assembled.
	RenderFailed = "Произошла ошибка при обработке маршрута."
)

// Formatter turns a Route into a Telegram Markdown message.
type Formatter struct {
	logger *slog.Logger
}

func NewFormatter(logger *slog.Logger) *Formatter {
	return &Formatter{logger: logger}
}

// Render never panics; an assembly fault yields RenderFailed.
func (f *Formatter) Render(r *Route) (msg string) {
	defer func() {
		if rec := recover(); rec != nil {
			f.logger.Error("route render failed", "panic", fmt.Sprint(rec))
			msg = RenderFailed
		}
	}()
	return render(r)
}

// RenderText is used when the model is asked for free text instead of JSON.
func RenderText(raw string) string {
	return Normalize(raw)
}

func render(r *Route) string {
	blocks := []string{
		"*" + or(r.Title, defaultTitle) + "*\n" +
			"*Начало маршрута:* " + or(r.StartLocation, placeholder),
	}

	for i, p := range r.Points {
		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("*%d. %s*", i+1, or(p.Name, defaultPointName)),
			"_" + or(p.Reason, placeholder) + "_",
			"*Время в пути:* " + or(p.TravelInfo, placeholder),
			"*Время посещения:* " + or(p.VisitDuration, placeholder),
		}, "\n"))
	}

	if len(r.Timeline) > 0 {
		lines := []string{"_Примерный таймлайн:_"}
		for _, item := range r.Timeline {
			lines = append(lines, "- _"+item+"_")
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	if s := strings.TrimSpace(r.Summary); s != "" {
		blocks = append(blocks, r.Summary)
	}

	return strings.Join(blocks, "\n\n")
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
