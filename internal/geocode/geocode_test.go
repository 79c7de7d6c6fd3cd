package geocode

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDescribe(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/maps/api/geocode/json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("latlng"); got == "" {
			t.Error("expected latlng parameter")
		}
		if got := r.URL.Query().Get("language"); got != "ru" {
			t.Errorf("expected language ru, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Большая Покровская ул., 1, Нижний Новгород"}]}`))
	}))
	defer server.Close()

	g, err := New("test-key", server.URL, "ru", discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	addr, err := g.Describe(context.Background(), 56.3269, 44.0059)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "Большая Покровская ул., 1, Нижний Новгород" {
		t.Errorf("unexpected address %q", addr)
	}

	// Nearby point hits the cache.
	if _, err := g.Describe(context.Background(), 56.32691, 44.00591); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 API call, got %d", calls.Load())
	}
}

func TestDescribe_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer server.Close()

	g, err := New("test-key", server.URL, "ru", discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	addr, err := g.Describe(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "" {
		t.Errorf("expected empty address, got %q", addr)
	}
}

func TestDescribe_Denied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid.","results":[]}`))
	}))
	defer server.Close()

	g, err := New("bad-key", server.URL, "ru", discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.Describe(context.Background(), 56.3, 44.0); err == nil {
		t.Fatal("expected error for denied request")
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := New("", "", "ru", discardLogger()); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestCacheKey(t *testing.T) {
	if cacheKey(56.32691, 44.00591) != cacheKey(56.32689, 44.00589) {
		t.Error("nearby coordinates should share a cache key")
	}
	if cacheKey(56.3269, 44.0059) == cacheKey(56.3369, 44.0059) {
		t.Error("distant coordinates should not share a cache key")
	}
}
