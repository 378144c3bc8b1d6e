// Package server wires the handlers, the push hub, and the middleware into
// the HTTP surface.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hearthdash/hearth/internal/aggregate"
	"github.com/hearthdash/hearth/internal/chore"
	"github.com/hearthdash/hearth/internal/handler"
	"github.com/hearthdash/hearth/internal/middleware"
	"github.com/hearthdash/hearth/internal/source"
	"github.com/hearthdash/hearth/internal/store"
	ws "github.com/hearthdash/hearth/internal/websocket"
)

type Server struct {
	hub         *ws.Hub
	calendarH   *handler.CalendarHandler
	choreH      *handler.ChoreHandler
	sourceH     *handler.SourceHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// Config carries the assembled core components into the server.
type Config struct {
	Aggregator  *aggregate.Aggregator
	Board       *chore.Board
	Commander   source.Commander
	Settings    *store.SettingsStore
	Hub         *ws.Hub
	Location    *time.Location
	HorizonDays int
}

func New(cfg Config, logger *slog.Logger) *Server {
	return &Server{
		hub:         cfg.Hub,
		calendarH:   handler.NewCalendarHandler(cfg.Aggregator, cfg.Commander, cfg.Location, cfg.HorizonDays, logger.With("component", "calendar")),
		choreH:      handler.NewChoreHandler(cfg.Board, cfg.Location, cfg.Hub, logger.With("component", "chore")),
		sourceH:     handler.NewSourceHandler(cfg.Aggregator, cfg.Settings, logger.With("component", "source")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.healthHandler)

	mux.HandleFunc("GET /api/sources", s.sourceH.List)
	mux.HandleFunc("POST /api/sources/{id}/visibility", s.sourceH.SetVisibility)

	mux.HandleFunc("GET /api/calendar", s.calendarH.View)
	mux.HandleFunc("GET /api/calendar/grid", s.calendarH.Grid)
	mux.HandleFunc("GET /api/agenda", s.calendarH.Agenda)
	mux.HandleFunc("POST /api/events", s.rateLimitedHandler(s.calendarH.Create))

	mux.HandleFunc("GET /api/chores", s.choreH.View)
	mux.HandleFunc("POST /api/chores", s.choreH.Add)
	mux.HandleFunc("POST /api/chores/toggle", s.choreH.Toggle)

	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
