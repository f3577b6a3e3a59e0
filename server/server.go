// Package server provides the HTTP API for personamesh.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/personamesh/core"
	"github.com/hupe1980/personamesh/engine"
)

// Handler exposes the engine's session operations over HTTP.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a new Handler.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// NewRouter builds the chi router with the standard middleware chain and all
// session routes registered.
func NewRouter(e *engine.Engine) chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	NewHandler(e).RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/", h.ListSessions)
		r.Get("/{sessionID}", h.GetSession)
		r.Post("/{sessionID}/message", h.SendMessage)
		r.Delete("/{sessionID}", h.EndSession)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// sessionSummary is the list-view projection of a session.
type sessionSummary struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Topic        string             `json:"topic,omitempty"`
	Status       core.SessionStatus `json:"status"`
	StartedAt    string             `json:"startedAt"`
	AgentCount   int                `json:"agentCount"`
	MessageCount int                `json:"messageCount"`
	HasWorkflow  bool               `json:"hasWorkflow"`
}

func summarize(sess *core.MultiAgentSession) sessionSummary {
	snap := sess.Snapshot()
	return sessionSummary{
		ID:           snap.ID,
		Name:         snap.Name,
		Description:  snap.Description,
		Topic:        snap.Topic,
		Status:       snap.Status,
		StartedAt:    snap.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		AgentCount:   len(snap.Agents),
		MessageCount: len(snap.Messages),
		HasWorkflow:  snap.Workflow != nil,
	}
}

// CreateSession creates a session and starts its driver.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var in engine.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Name == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(in.PersonaIDs) == 0 {
		Error(w, http.StatusBadRequest, "personaIds is required")
		return
	}

	sess, err := h.engine.CreateSession(r.Context(), in)
	if err != nil {
		if errors.Is(err, core.ErrNoPersonas) {
			Error(w, http.StatusBadRequest, "no personas resolved for the given ids")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	JSON(w, http.StatusCreated, sess.Snapshot())
}

// ListSessions returns summaries of all sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.engine.ListSessions()
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, summarize(sess))
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

// GetSession returns the full session snapshot, transcript and analysis
// included.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.engine.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	JSON(w, http.StatusOK, sess.Snapshot())
}

type sendMessageRequest struct {
	Message     string `json:"message"`
	FromAgentID string `json:"fromAgentId,omitempty"`
}

// SendMessage injects a message into an active session.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	res, err := h.engine.SendMessage(r.Context(), chi.URLParam(r, "sessionID"), req.Message, req.FromAgentID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSessionNotFound):
			Error(w, http.StatusNotFound, "session not found")
		case errors.Is(err, core.ErrAgentNotFound):
			Error(w, http.StatusBadRequest, "unknown fromAgentId")
		case errors.Is(err, core.ErrSessionCompleted):
			Error(w, http.StatusConflict, "session already completed")
		default:
			Error(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}
	JSON(w, http.StatusOK, res)
}

// EndSession completes a session and synthesizes its analysis.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.EndSession(chi.URLParam(r, "sessionID")); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
