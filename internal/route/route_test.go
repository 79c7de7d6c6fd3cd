package route

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadSample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/sample_route.json")
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	return string(data)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without newline", "```{\"a\":1}```", `{"a":1}`},
		{"prose around object", "Вот ваш маршрут:\n{\"a\":1}\nПриятной прогулки!", `{"a":1}`},
		{"nested fences", "```\n```json\n{\"a\":1}\n```\n```", `{"a":1}`},
		{"no braces", "```\nпросто текст\n```", "просто текст"},
		{"empty", "", ""},
		{"only fence", "```", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"```",
		"``````",
		"```json\n{\"a\":1}\n```",
		"text } with { inverted braces",
		"} {",
		"```python\nprint(1)\n```",
		"  ```\n  {\"title\": \"x\"} trailing```  ",
		"{{\"a\":{\"b\":1}}}",
		loadSample(t),
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestParse_Sample(t *testing.T) {
	r, err := Parse(Normalize("```json\n" + loadSample(t) + "\n```"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Историческое сердце Нижнего: прогулка на 2 часа" {
		t.Errorf("unexpected title %q", r.Title)
	}
	if len(r.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(r.Points))
	}
	if r.Points[1].Name != "Музей истории" || r.Points[1].VisitDuration != "40 минут" {
		t.Errorf("unexpected second point: %+v", r.Points[1])
	}
	if len(r.Timeline) != 5 {
		t.Errorf("expected 5 timeline entries, got %d", len(r.Timeline))
	}
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		`{"title": "Прогулка", "route_points": [`,
		`не json`,
		`[1, 2, 3]`,
		`{"timeline": "должен быть массив"}`,
		``,
	}
	for _, in := range inputs {
		r, err := Parse(Normalize(in))
		if err == nil {
			t.Errorf("expected error for %q, got %+v", in, r)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("expected *ParseError for %q, got %T", in, err)
		}
	}
}

func TestRender_Sample(t *testing.T) {
	sample := loadSample(t)
	r, err := Parse(Normalize(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := NewFormatter(discardLogger()).Render(r)

	wantInOrder := []string{
		"*Историческое сердце Нижнего: прогулка на 2 часа*",
		"*Начало маршрута:* Площадь Минина и Пожарского",
		"*1. Дмитриевская башня*",
		"_Это не просто вход в Кремль",
		"*Время в пути:* Находится прямо у входа.",
		"*Время посещения:* 20 минут",
		"*2. Музей истории*",
		"*3. Большая Покровская улица*",
		"_Примерный таймлайн:_",
		"- _0-20 мин: Осмотр Дмитриевской башни._",
		"- _85-120 мин: Прогулка по улице и отдых._",
		"Эта двухчасовая прогулка",
	}
	pos := 0
	for _, want := range wantInOrder {
		idx := strings.Index(msg[pos:], want)
		if idx < 0 {
			t.Fatalf("expected %q after offset %d in:\n%s", want, pos, msg)
		}
		pos += idx + len(want)
	}

	if blocks := strings.Split(msg, "\n\n"); len(blocks) != 6 {
		t.Errorf("expected 6 blocks (header, 3 points, timeline, summary), got %d", len(blocks))
	}
}

func TestRender_Placeholders(t *testing.T) {
	msg := NewFormatter(discardLogger()).Render(&Route{
		Points: []Point{{}},
	})

	checks := []string{
		"*Ваш пешеходный маршрут*",
		"*Начало маршрута:* Не указано",
		"*1. Без названия*",
		"_Не указано_",
		"*Время в пути:* Не указано",
		"*Время посещения:* Не указано",
	}
	for _, check := range checks {
		if !strings.Contains(msg, check) {
			t.Errorf("expected message to contain %q, got:\n%s", check, msg)
		}
	}
}

func TestRender_EmptyListsContributeNoBlock(t *testing.T) {
	msg := NewFormatter(discardLogger()).Render(&Route{Title: "Коротко", StartLocation: "Кремль"})

	want := "*Коротко*\n*Начало маршрута:* Кремль"
	if msg != want {
		t.Errorf("expected %q, got %q", want, msg)
	}
	if strings.Contains(msg, "таймлайн") {
		t.Error("empty timeline should not render a header")
	}
}

func TestRender_RecoversFromFault(t *testing.T) {
	msg := NewFormatter(discardLogger()).Render(nil)
	if msg != RenderFailed {
		t.Errorf("expected %q, got %q", RenderFailed, msg)
	}
}

func TestRenderText(t *testing.T) {
	got := RenderText("```\nСначала идите к Кремлю.\n```")
	if got != "Сначала идите к Кремлю." {
		t.Errorf("unexpected text %q", got)
	}
}
