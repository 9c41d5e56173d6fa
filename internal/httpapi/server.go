// Package httpapi exposes the host controls over HTTP so a phone or a
// second screen can drive the game, plus a websocket state stream.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/engine"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
	"github.com/hammamikhairi/mysteryhost/internal/observability"
)

// Controller is the part of the engine the API drives.
type Controller interface {
	Snapshot() engine.Snapshot
	Subscribe(fn func(engine.Snapshot)) (unsubscribe func())
	Start()
	Pause()
	Toggle()
	Reset()
	SetDuration(seconds int) error
	SetMinutes(minutes int) error
	SetSpeed(speed float64) (float64, error)
	Announce(ctx context.Context, text string) (*domain.Announcement, error)
	AnnouncePreset(ctx context.Context, p domain.Preset) (*domain.Announcement, error)
}

// Option configures the server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS and websocket origin allow list.
// "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithMetrics serves m at /metrics and reports websocket clients to it.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Server is the control API.
type Server struct {
	eng      Controller
	history  domain.HistoryStore
	metrics  *observability.Metrics
	log      *logger.Logger
	origins  []string
	upgrader websocket.Upgrader
	hub      *Hub
	unsub    func()
}

// New creates the server and subscribes it to engine state changes.
func New(eng Controller, history domain.HistoryStore, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		eng:     eng,
		history: history,
		log:     log,
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}

	var gauge ClientGauge
	if s.metrics != nil {
		gauge = s.metrics
	}
	s.hub = NewHub(log, gauge)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.unsub = eng.Subscribe(func(snap engine.Snapshot) {
		s.hub.Broadcast(snap)
	})
	return s
}

// Close stops broadcasting and disconnects websocket clients.
func (s *Server) Close() {
	s.unsub()
	s.hub.Close()
}

// Router returns the routes wrapped in CORS.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Get("/v1/state", s.handleState)
	r.Post("/v1/timer/start", s.timerAction(s.eng.Start))
	r.Post("/v1/timer/pause", s.timerAction(s.eng.Pause))
	r.Post("/v1/timer/toggle", s.timerAction(s.eng.Toggle))
	r.Post("/v1/timer/reset", s.timerAction(s.eng.Reset))
	r.Put("/v1/timer/duration", s.handleSetDuration)
	r.Put("/v1/speed", s.handleSetSpeed)

	r.Post("/v1/announcements", s.handleAnnounce)
	r.Get("/v1/announcements", s.handleListAnnouncements)
	r.Get("/v1/announcements/{id}", s.handleGetAnnouncement)

	r.Get("/v1/ws", s.handleWS)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
		},
		AllowedOrigins: s.origins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"ws_clients": s.hub.Len(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.eng.Snapshot())
}

func (s *Server) timerAction(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		respondJSON(w, http.StatusOK, s.eng.Snapshot())
	}
}

type durationRequest struct {
	Seconds *int `json:"seconds"`
	Minutes *int `json:"minutes"`
}

func (s *Server) handleSetDuration(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var err error
	switch {
	case req.Seconds != nil:
		err = s.eng.SetDuration(*req.Seconds)
	case req.Minutes != nil:
		err = s.eng.SetMinutes(*req.Minutes)
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", "seconds or minutes is required")
		return
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.eng.Snapshot())
}

type speedRequest struct {
	Speed *float64 `json:"speed"`
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Speed == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "speed is required")
		return
	}
	if _, err := s.eng.SetSpeed(*req.Speed); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.eng.Snapshot())
}

type announceRequest struct {
	Text   string `json:"text"`
	Preset string `json:"preset"`
}

func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var (
		rec *domain.Announcement
		err error
	)
	if strings.TrimSpace(req.Preset) != "" {
		p, ok := domain.PresetFromString(req.Preset)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown_preset", "preset must be discussion or vote")
			return
		}
		rec, err = s.eng.AnnouncePreset(r.Context(), p)
	} else {
		rec, err = s.eng.Announce(r.Context(), req.Text)
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := s.history.List(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.history.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("ws: upgrade failed: %v", err)
		return
	}

	initial, err := marshalSnapshot(s.eng.Snapshot())
	if err != nil {
		s.log.Error("ws: marshal snapshot: %v", err)
		conn.Close()
		return
	}
	s.hub.Serve(conn, initial)
}

// checkOrigin allows non-browser clients, same-origin pages and the
// configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
