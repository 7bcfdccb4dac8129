// Package api exposes the engine over HTTP. No business logic lives
// here, only routing, JSON handling and error mapping.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"swipee/pkg/interfaces"
	"swipee/pkg/types"
)

// ChannelHub is the slice of the realtime broker the gateway needs.
type ChannelHub interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	Stats() map[string]int
}

// ScoreQueue accepts score submissions for asynchronous delivery.
type ScoreQueue interface {
	Enqueue(key types.SessionKey, entry types.ScoreEntry) error
	Pending() int
	Dropped() int
}

// HealthChecker reports storage liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Server struct {
	engine interfaces.GameEngine
	store  HealthChecker
	hub    ChannelHub
	scores ScoreQueue
	router *mux.Router
}

func NewServer(engine interfaces.GameEngine, store HealthChecker, hub ChannelHub, scores ScoreQueue) *Server {
	s := &Server{
		engine: engine,
		store:  store,
		hub:    hub,
		scores: scores,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.corsMiddleware, s.jsonMiddleware)

	api.HandleFunc("/game-state", s.getGameState).Methods(http.MethodGet)
	api.HandleFunc("/game-state", s.initializeGameState).Methods(http.MethodPost)
	api.HandleFunc("/game-state", s.updateGameState).Methods(http.MethodPut)
	api.HandleFunc("/game-state", s.deleteGameState).Methods(http.MethodDelete)
	api.HandleFunc("/game-state", s.preflight).Methods(http.MethodOptions)

	s.router.HandleFunc("/ws", s.hub.HandleWebSocket)
	s.router.Handle("/health", s.jsonMiddleware(http.HandlerFunc(s.healthCheck))).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// sessionKey extracts and validates the presentationId/slideId query
// parameters every game-state route requires.
func (s *Server) sessionKey(r *http.Request) (types.SessionKey, error) {
	return types.NewSessionKey(
		r.URL.Query().Get("presentationId"),
		r.URL.Query().Get("slideId"),
	)
}

type InitializeRequest struct {
	Config types.SessionConfig `json:"config"`
}

// UpdateRequest carries one mutation. Type selects which field of Data
// is read: "event" appends a lifecycle event, "score" queues a score
// entry, "config" replaces the question set.
type UpdateRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type GameStateResponse struct {
	Record *types.SessionRecord `json:"record"`
}

type PhaseResponse struct {
	Phase types.Phase `json:"phase"`
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Database  string         `json:"database"`
	Channels  map[string]int `json:"channels"`
	Scores    ScoreStats     `json:"scores"`
}

type ScoreStats struct {
	Pending int `json:"pending"`
	Dropped int `json:"dropped"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GET /api/game-state - full record for reconnect-style state recovery
func (s *Server) getGameState(w http.ResponseWriter, r *http.Request) {
	key, err := s.sessionKey(r)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := s.engine.GetRecord(r.Context(), key)
	if err != nil {
		s.mapEngineError(w, err)
		return
	}

	json.NewEncoder(w).Encode(GameStateResponse{Record: record})
}

// POST /api/game-state - create or overwrite the session record
func (s *Server) initializeGameState(w http.ResponseWriter, r *http.Request) {
	key, err := s.sessionKey(r)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := s.engine.Initialize(r.Context(), key, types.GameTypeSwipee, req.Config); err != nil {
		s.mapEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"key": key.String()})
}

// PUT /api/game-state - append an event or score, or replace the config
func (s *Server) updateGameState(w http.ResponseWriter, r *http.Request) {
	key, err := s.sessionKey(r)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case "event":
		var body struct {
			EventName types.EventName `json:"event_name"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			s.sendError(w, "Invalid event data", http.StatusBadRequest)
			return
		}
		phase, err := s.engine.AppendEvent(r.Context(), key, body.EventName)
		if err != nil {
			s.mapEngineError(w, err)
			return
		}
		json.NewEncoder(w).Encode(PhaseResponse{Phase: phase})

	case "score":
		var entry types.ScoreEntry
		if err := json.Unmarshal(req.Data, &entry); err != nil {
			s.sendError(w, "Invalid score data", http.StatusBadRequest)
			return
		}
		if err := s.scores.Enqueue(key, entry); err != nil {
			s.mapEngineError(w, err)
			return
		}
		// Accepted: the outbox delivers asynchronously.
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "queued"})

	case "config":
		var config types.SessionConfig
		if err := json.Unmarshal(req.Data, &config); err != nil {
			s.sendError(w, "Invalid config data", http.StatusBadRequest)
			return
		}
		if err := s.engine.ReplaceConfig(r.Context(), key, config); err != nil {
			s.mapEngineError(w, err)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "updated"})

	default:
		s.sendError(w, "Update type must be event, score or config", http.StatusBadRequest)
	}
}

// DELETE /api/game-state - remove the session record, idempotent
func (s *Server) deleteGameState(w http.ResponseWriter, r *http.Request) {
	key, err := s.sessionKey(r)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.engine.Delete(r.Context(), key); err != nil {
		s.mapEngineError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

// GET /health - storage liveness plus channel and outbox statistics
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"
	if err := s.store.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = err.Error()
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Database:  dbStatus,
		Channels:  s.hub.Stats(),
		Scores: ScoreStats{
			Pending: s.scores.Pending(),
			Dropped: s.scores.Dropped(),
		},
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

func (s *Server) preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// mapEngineError converts engine failures to HTTP status codes.
// Validation sentinels map to 400, a missing session to 404, anything
// else to 500 without leaking storage details.
func (s *Server) mapEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrSessionNotFound):
		s.sendError(w, "Game state not found", http.StatusNotFound)
	case errors.Is(err, types.ErrEmptyConfig),
		errors.Is(err, types.ErrInvalidQuestion),
		errors.Is(err, types.ErrInvalidEventName),
		errors.Is(err, types.ErrInvalidAudienceID),
		errors.Is(err, types.ErrInvalidPresentationID),
		errors.Is(err, types.ErrInvalidSlideID):
		s.sendError(w, err.Error(), http.StatusBadRequest)
	default:
		s.sendError(w, "Internal error", http.StatusInternalServerError)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
