package route

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/MikeSquared-Agency/wayfarer/internal/completion"
)

const fence = "```"

// Route is the itinerary shape the model is asked to return.
type Route struct {
	Title         string   `json:"title"`
	StartLocation string   `json:"start_location"`
	Points        []Point  `json:"route_points"`
	Timeline      []string `json:"timeline"`
	Summary       string   `json:"summary"`
}

type Point struct {
	Name          string `json:"name"`
	Reason        string `json:"reason"`
	TravelInfo    string `json:"travel_info"`
	VisitDuration string `json:"visit_duration"`
}

// ParseError reports model output that is not a route document.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse route: %v (text: %s)", e.Err, completion.Truncate(e.Text, 200))
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalize strips code fences and surrounding prose from raw model output,
// leaving the span from the first '{' to the last '}' when both are present.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		prev := s
		if strings.HasPrefix(s, fence) {
			s = s[len(fence):]
			if i := strings.IndexByte(s, '\n'); i >= 0 && isLanguageTag(s[:i]) {
				s = s[i+1:]
			}
		}
		s = strings.TrimSuffix(s, fence)
		s = strings.TrimSpace(s)
		if s == prev {
			break
		}
	}

	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 16 {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// Parse decodes normalized text into a Route. Anything other than a JSON
// object yields a *ParseError.
func Parse(normalized string) (*Route, error) {
	if !strings.HasPrefix(strings.TrimSpace(normalized), "{") {
		return nil, &ParseError{Text: normalized, Err: fmt.Errorf("not a JSON object")}
	}

	var r Route
	if err := sonic.UnmarshalString(normalized, &r); err != nil {
		return nil, &ParseError{Text: normalized, Err: err}
	}
	return &r, nil
}
