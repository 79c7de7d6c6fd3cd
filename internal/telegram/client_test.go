package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/wayfarer/internal/dialogue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSend_MarkdownWithLocationButton(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json; charset=utf-8" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer server.Close()

	c := NewClient("TOKEN", server.URL, discardLogger())
	err := c.Send(context.Background(), 42, dialogue.Message{Text: "*Маршрут*", Markdown: true, RequestLocation: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["chat_id"].(float64) != 42 {
		t.Errorf("expected chat_id 42, got %v", got["chat_id"])
	}
	if got["parse_mode"] != "Markdown" {
		t.Errorf("expected Markdown parse mode, got %v", got["parse_mode"])
	}
	markup, ok := got["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("expected reply_markup, got %v", got["reply_markup"])
	}
	button := markup["keyboard"].([]any)[0].([]any)[0].(map[string]any)
	if button["request_location"] != true {
		t.Errorf("expected request_location button, got %v", button)
	}
}

func TestSend_PlainTextHasNoParseMode(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	c := NewClient("TOKEN", server.URL, discardLogger())
	if err := c.Send(context.Background(), 1, dialogue.Message{Text: "3_часа", RemoveKeyboard: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["parse_mode"]; ok {
		t.Error("plain message should not set parse_mode")
	}
	if got["reply_markup"].(map[string]any)["remove_keyboard"] != true {
		t.Errorf("expected remove_keyboard, got %v", got["reply_markup"])
	}
}

func TestSend_FallsBackToPlainText(t *testing.T) {
	var (
		mu    sync.Mutex
		modes []any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		modes = append(modes, body["parse_mode"])
		mu.Unlock()
		if body["parse_mode"] == "Markdown" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Can't find end of the entity starting at byte offset 10"}`))
			return
		}
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	c := NewClient("TOKEN", server.URL, discardLogger())
	if err := c.Send(context.Background(), 1, dialogue.Message{Text: "*незакрыто", Markdown: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(modes) != 2 || modes[0] != "Markdown" || modes[1] != nil {
		t.Errorf("expected markdown then plain attempts, got %v", modes)
	}
}

func TestSend_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer server.Close()

	c := NewClient("TOKEN", server.URL, discardLogger())
	err := c.Send(context.Background(), 1, dialogue.Message{Text: "hi", Markdown: true})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 403 {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
}

func TestCall_RedactsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient("SECRET-TOKEN", url, discardLogger())
	err := c.Send(context.Background(), 1, dialogue.Message{Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "SECRET-TOKEN") {
		t.Errorf("token leaked in error: %v", err)
	}
}

func TestGetUpdates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["offset"].(float64) != 10 || body["timeout"].(float64) != 5 {
			t.Errorf("unexpected getUpdates body %v", body)
		}
		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":7},"text":"/start"}},
			{"update_id":11,"message":{"message_id":2,"chat":{"id":7},"location":{"latitude":56.32,"longitude":44.0}}}
		]}`))
	}))
	defer server.Close()

	c := NewClient("TOKEN", server.URL, discardLogger())
	updates, err := c.GetUpdates(context.Background(), 10, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[1].Message.Location == nil || updates[1].Message.Location.Latitude != 56.32 {
		t.Errorf("unexpected location update %+v", updates[1].Message)
	}
}
