package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/wayfarer/internal/dialogue"
)

func TestToEvent(t *testing.T) {
	tests := []struct {
		name   string
		update Update
		want   dialogue.Event
		ok     bool
	}{
		{
			name:   "start",
			update: Update{Message: &Message{Chat: Chat{ID: 1}, Text: "/start"}},
			want:   dialogue.Event{ChatID: 1, Kind: dialogue.EventStart, Text: "/start"},
			ok:     true,
		},
		{
			name:   "start with bot name",
			update: Update{Message: &Message{Chat: Chat{ID: 1}, Text: "/start@wayfarer_bot"}},
			want:   dialogue.Event{ChatID: 1, Kind: dialogue.EventStart, Text: "/start@wayfarer_bot"},
			ok:     true,
		},
		{
			name:   "text",
			update: Update{Message: &Message{Chat: Chat{ID: 2}, Text: "история"}},
			want:   dialogue.Event{ChatID: 2, Kind: dialogue.EventText, Text: "история"},
			ok:     true,
		},
		{
			name:   "not a start command",
			update: Update{Message: &Message{Chat: Chat{ID: 2}, Text: "/starting"}},
			want:   dialogue.Event{ChatID: 2, Kind: dialogue.EventText, Text: "/starting"},
			ok:     true,
		},
		{
			name:   "location",
			update: Update{Message: &Message{Chat: Chat{ID: 3}, Location: &Location{Latitude: 56.32, Longitude: 44.0}}},
			want:   dialogue.Event{ChatID: 3, Kind: dialogue.EventLocation, Latitude: 56.32, Longitude: 44.0},
			ok:     true,
		},
		{name: "sticker", update: Update{Message: &Message{Chat: Chat{ID: 4}}}},
		{name: "no message", update: Update{UpdateID: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToEvent(tt.update)
			if ok != tt.ok {
				t.Fatalf("ToEvent ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ToEvent = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseUpdate(t *testing.T) {
	u, err := ParseUpdate([]byte(`{"update_id":99,"message":{"message_id":1,"from":{"id":5,"first_name":"Аня"},"chat":{"id":5},"text":"2"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.UpdateID != 99 || u.Message.Text != "2" || u.Message.From.FirstName != "Аня" {
		t.Errorf("unexpected update %+v", u)
	}

	if _, err := ParseUpdate([]byte(`{`)); err == nil {
		t.Error("expected error for malformed update")
	}
}

func TestPoller_AdvancesOffset(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []float64
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/deleteWebhook") {
			w.Write([]byte(`{"ok":true,"result":true}`))
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		offsets = append(offsets, body["offset"].(float64))
		n := len(offsets)
		mu.Unlock()

		switch n {
		case 1:
			w.Write([]byte(`{"ok":true,"result":[{"update_id":100,"message":{"chat":{"id":1},"text":"a"}},{"update_id":101,"message":{"chat":{"id":1},"text":"b"}}]}`))
		case 2:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"ok":false,"error_code":502,"description":"Bad Gateway"}`))
		default:
			w.Write([]byte(`{"ok":true,"result":[]}`))
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled []int64
	p := NewPoller(NewClient("TOKEN", server.URL, discardLogger()), func(u Update) {
		handled = append(handled, u.UpdateID)
	}, discardLogger())
	p.timeout = 0
	p.backoff = time.Millisecond

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(offsets)
		mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("poller did not make three requests")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if offsets[0] != 0 || offsets[1] != 102 || offsets[2] != 102 {
		t.Errorf("unexpected offsets %v", offsets)
	}
	if len(handled) != 2 || handled[0] != 100 || handled[1] != 101 {
		t.Errorf("unexpected handled updates %v", handled)
	}
}
