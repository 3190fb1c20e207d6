// Package http exposes a machine as a session API: create a session, send
// it events, read its state. Sessions survive restarts through a
// ports.SnapshotStore.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/statch/statch"
	"github.com/statch/statch/internal/logging"
	"github.com/statch/statch/pkg/domain"
	"github.com/statch/statch/pkg/ports"
)

// Server drives one machine across many sessions. Live services are cached;
// unknown session IDs are resumed from the snapshot store.
type Server struct {
	machine *statch.Machine
	store   ports.SnapshotStore
	logger  *slog.Logger

	mu       sync.Mutex
	services map[string]*statch.Service
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a session server for a machine backed by a store.
func NewServer(machine *statch.Machine, store ports.SnapshotStore, opts ...Option) *Server {
	s := &Server{
		machine:  machine,
		store:    store,
		logger:   logging.NewNop(),
		services: make(map[string]*statch.Service),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler mounts the session routes on a chi router.
func NewHandler(machine *statch.Machine, store ports.SnapshotStore, opts ...Option) http.Handler {
	s := NewServer(machine, store, opts...)
	r := chi.NewRouter()
	r.Post("/sessions", s.createSession)
	r.Get("/sessions", s.listSessions)
	r.Get("/sessions/{id}", s.getSession)
	r.Post("/sessions/{id}/events", s.sendEvent)
	r.Delete("/sessions/{id}", s.deleteSession)
	return r
}

type createRequest struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value,omitempty"`
}

type sessionResponse struct {
	ID      string         `json:"id"`
	Value   string         `json:"value"`
	Context map[string]any `json:"context,omitempty"`
	Status  string         `json:"status"`
	Changed bool           `json:"changed"`
}

func (s *Server) respond(w http.ResponseWriter, code int, id string, svc *statch.Service) {
	st := svc.State()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(sessionResponse{
		ID:      id,
		Value:   st.Value,
		Context: st.Context,
		Status:  svc.Status().String(),
		Changed: st.Changed,
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := body.ID
	if id == "" {
		id = fmt.Sprintf("s-%d", time.Now().UnixNano())
	}

	svc := s.machine.Interpret(statch.WithLogger(s.logger))
	if body.Value != "" {
		svc.StartAt(body.Value)
	} else {
		svc.Start()
	}
	if svc.Status() != domain.StatusRunning {
		http.Error(w, fmt.Sprintf("Cannot start session at %q", body.Value), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.services[id] = svc
	s.mu.Unlock()

	if err := s.store.Save(r.Context(), id, svc.Snapshot()); err != nil {
		s.logger.Error("failed to persist session", "session", id, "error", err)
		http.Error(w, "Failed to persist session", http.StatusInternalServerError)
		return
	}
	s.respond(w, http.StatusCreated, id, svc)
}

// resolve returns the live service for a session, resuming it from the
// store when the process no longer holds it.
func (s *Server) resolve(r *http.Request, id string) (*statch.Service, error) {
	s.mu.Lock()
	svc, ok := s.services[id]
	s.mu.Unlock()
	if ok {
		return svc, nil
	}

	snap, err := s.store.Load(r.Context(), id)
	if err != nil {
		return nil, err
	}
	svc = s.machine.Interpret(
		statch.WithLogger(s.logger),
		statch.WithSnapshot(snap),
	)

	s.mu.Lock()
	s.services[id] = svc
	s.mu.Unlock()
	return svc, nil
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	svc, err := s.resolve(r, id)
	if err != nil {
		s.notFoundOrError(w, id, err)
		return
	}
	s.respond(w, http.StatusOK, id, svc)
}

func (s *Server) sendEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	svc, err := s.resolve(r, id)
	if err != nil {
		s.notFoundOrError(w, id, err)
		return
	}

	var event map[string]any
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid event body", http.StatusBadRequest)
		return
	}

	// Services are single-threaded; serialize event delivery across requests.
	s.mu.Lock()
	svc.Send(event)
	snap := svc.Snapshot()
	s.mu.Unlock()

	if err := s.store.Save(r.Context(), id, snap); err != nil {
		s.logger.Error("failed to persist session", "session", id, "error", err)
		http.Error(w, "Failed to persist session", http.StatusInternalServerError)
		return
	}
	s.respond(w, http.StatusOK, id, svc)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	svc, ok := s.services[id]
	delete(s.services, id)
	s.mu.Unlock()
	if ok {
		svc.Stop()
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"sessions": ids})
}

func (s *Server) notFoundOrError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, fmt.Sprintf("Session %q not found", id), http.StatusNotFound)
		return
	}
	s.logger.Error("failed to load session", "session", id, "error", err)
	http.Error(w, "Failed to load session", http.StatusInternalServerError)
}
