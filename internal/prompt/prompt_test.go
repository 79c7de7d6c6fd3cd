package prompt

import (
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

func TestBuildRoute_EmbedsForm(t *testing.T) {
	p := BuildRoute(tour.Form{Interests: "история", Hours: 2, Location: "координаты 56.32, 44.00"}, FormatJSON)

	checks := []string{
		"история",
		"2 часа",
		"координаты 56.32, 44.00",
		`"title", "start_location", "route_points", "timeline", "summary"`,
		`"name", "reason", "travel_info", "visit_duration"`,
		"ОДНИМ JSON-объектом",
		"Не используй Markdown",
		"Историческое сердце Нижнего",
	}
	for _, check := range checks {
		if !strings.Contains(p, check) {
			t.Errorf("expected prompt to contain %q", check)
		}
	}
	if strings.Contains(p, "ТОЛЬКО эти места") {
		t.Error("prompt without candidates should not restrict places")
	}
}

func TestBuildRoute_Candidates(t *testing.T) {
	form := tour.Form{
		Interests: "музеи",
		Hours:     3,
		Location:  "Кремль",
		Candidates: []tour.Place{
			{Title: "Художественный музей", Address: "Кремль, корп. 3"},
			{Title: "Усадьба Рукавишниковых"},
		},
	}
	p := BuildRoute(form, FormatJSON)

	for _, check := range []string{
		"ТОЛЬКО эти места",
		"1. Художественный музей (Кремль, корп. 3)",
		"2. Усадьба Рукавишниковых\n",
	} {
		if !strings.Contains(p, check) {
			t.Errorf("expected prompt to contain %q", check)
		}
	}
}

func TestBuildRoute_TextFormat(t *testing.T) {
	p := BuildRoute(tour.Form{Interests: "кофе", Hours: 1, Location: "Покровка"}, FormatText)

	if strings.Contains(p, "ТРЕБОВАНИЯ К JSON") || strings.Contains(p, SampleRoute) {
		t.Error("text prompt should not carry the JSON contract")
	}
	if !strings.Contains(p, "1 час\n") {
		t.Error("expected singular hour form")
	}
	if !strings.Contains(p, "обычным текстом") {
		t.Error("expected free text instruction")
	}
}

func TestBuildRoute_Deterministic(t *testing.T) {
	form := tour.Form{Interests: "парки", Hours: 5, Location: "Откос"}
	if BuildRoute(form, FormatJSON) != BuildRoute(form, FormatJSON) {
		t.Error("expected identical prompts for identical input")
	}
}

func TestHoursWord(t *testing.T) {
	tests := map[int]string{1: "час", 2: "часа", 4: "часа", 5: "часов", 11: "часов", 12: "часов", 21: "час", 22: "часа"}
	for n, want := range tests {
		if got := hoursWord(n); got != want {
			t.Errorf("hoursWord(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestBuildCategory(t *testing.T) {
	p := BuildCategory("стрит-арт и граффити")
	if !strings.Contains(p, "стрит-арт и граффити") {
		t.Error("expected interests in prompt")
	}
	for _, c := range tour.Categories {
		if !strings.Contains(p, c.Key+". "+c.Name) {
			t.Errorf("expected category %s in prompt", c.Key)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		reply  string
		want   string
		wantOK bool
	}{
		{"4", "4", true},
		{" 2\n", "2", true},
		{"Категория: 5.", "5", true},
		{"10", "", false},
		{"0", "", false},
		{"не знаю", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.reply)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q, %v", tt.reply, got, ok, tt.want, tt.wantOK)
		}
	}
}
