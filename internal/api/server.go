package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/wayfarer/internal/completion"
	"github.com/MikeSquared-Agency/wayfarer/internal/dialogue"
	"github.com/MikeSquared-Agency/wayfarer/internal/route"
	"github.com/MikeSquared-Agency/wayfarer/internal/store"
	"github.com/MikeSquared-Agency/wayfarer/internal/telegram"
	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

// RoutePlanner generates a route message for a form.
type RoutePlanner interface {
	Plan(ctx context.Context, chatID int64, form tour.Form) (string, error)
}

// StatsSource reports generation outcomes.
type StatsSource interface {
	GenerationStats(ctx context.Context, since time.Time) (*store.GenerationStats, error)
}

// Deps are the optional collaborators behind the status, webhook and routes
// endpoints. Nil fields disable what depends on them.
type Deps struct {
	Provider string
	Mode     string

	Planner  RoutePlanner
	APIToken string

	// Updates receives webhook updates; WebhookSecret is checked against
	// X-Telegram-Bot-Api-Secret-Token when set.
	Updates       func(telegram.Update)
	WebhookSecret string

	Active    func() int
	Connected func() bool
	Stats     StatsSource
}

type Server struct {
	router *chi.Mux
	port   int
	deps   Deps
	logger *slog.Logger
	srv    *http.Server
}

func NewServer(port int, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		logger: logger,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/wayfarer/status", s.status)

	if deps.Updates != nil {
		router.Post("/telegram/webhook", s.webhook)
	}
	if deps.Planner != nil {
		router.Route("/api/v1/routes", func(r chi.Router) {
			r.Use(BearerAuthMiddleware(deps.APIToken))
			r.Post("/", s.planRoute)
		})
	}

	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"agent":    "wayfarer",
		"provider": s.deps.Provider,
		"mode":     s.deps.Mode,
	}
	if s.deps.Active != nil {
		body["active_sessions"] = s.deps.Active()
	}
	if s.deps.Connected != nil {
		body["nats_connected"] = s.deps.Connected()
	}
	if s.deps.Stats != nil {
		stats, err := s.deps.Stats.GenerationStats(r.Context(), time.Now().Add(-24*time.Hour))
		if err != nil {
			s.logger.Warn("failed to load generation stats", "error", err)
		} else {
			body["generations_24h"] = stats
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.WebhookSecret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.deps.WebhookSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid secret token")
			return
		}
	}

	var u telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	s.deps.Updates(u)
	w.WriteHeader(http.StatusOK)
}

// RouteRequest is the body of POST /api/v1/routes.
type RouteRequest struct {
	Interests string `json:"interests"`
	Hours     int    `json:"hours"`
	Location  string `json:"location"`
}

func (s *Server) planRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var missing []string
	if strings.TrimSpace(req.Interests) == "" {
		missing = append(missing, "interests")
	}
	if req.Hours <= 0 {
		missing = append(missing, "hours")
	}
	if strings.TrimSpace(req.Location) == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "invalid fields: "+strings.Join(missing, ", "))
		return
	}

	msg, err := s.deps.Planner.Plan(r.Context(), 0, tour.Form{
		Interests: req.Interests,
		Hours:     req.Hours,
		Location:  req.Location,
	})
	if err != nil {
		status, text := planError(err)
		s.logger.Warn("route request failed", "status", status, "error", err)
		writeError(w, status, text)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func planError(err error) (int, string) {
	var parseErr *route.ParseError
	switch {
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, dialogue.TextMalformed
	case errors.Is(err, completion.ErrTimeout):
		return http.StatusGatewayTimeout, dialogue.TextFailed
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, dialogue.TextFailed
	default:
		return http.StatusBadGateway, dialogue.TextFailed
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
