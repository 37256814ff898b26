package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gracepapers/coursechat/internal/api"
	"github.com/gracepapers/coursechat/internal/config"
	"github.com/gracepapers/coursechat/internal/domain"
	"github.com/gracepapers/coursechat/internal/store"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

const welcomeMessage = "Hello! I'm your course research assistant. I can help you find the best courses for your learning goals. What would you like to learn about?"

// Handler serves the chat session endpoints: start, history, stream and
// reset, plus the websocket transport.
type Handler struct {
	store       store.SessionStore
	orch        *Orchestrator
	rateLimiter *RateLimiter
	maxBodySize int64
	wsOrigins   []string
}

// NewHandler creates the chat handler. cfg may be nil, in which case
// defaults apply.
func NewHandler(s store.SessionStore, orch *Orchestrator, cfg *config.Config) *Handler {
	rateLimitRequests := 10
	rateLimitWindow := time.Minute
	maxBodySize := int64(defaultMaxRequestBodySize)
	wsOrigins := []string{"*"}

	if cfg != nil {
		rateLimitRequests = cfg.RateLimit.RequestsPerWindow
		rateLimitWindow = cfg.RateLimit.WindowDuration
		maxBodySize = cfg.MaxRequestBodySize
		if cfg.FrontendURL != "" {
			wsOrigins = []string{cfg.FrontendURL}
		}
	}

	return &Handler{
		store:       s,
		orch:        orch,
		rateLimiter: NewRateLimiter(rateLimitRequests, rateLimitWindow),
		maxBodySize: maxBodySize,
		wsOrigins:   wsOrigins,
	}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/start", h.HandleStart)
		r.Get("/history/{sessionID}", h.HandleHistory)
		r.Post("/stream", h.HandleStream)
		r.Post("/reset", h.HandleReset)
	})
	r.Get("/ws/chat", h.HandleWS)
}

// StartRequest is the body of POST /api/chat/start.
type StartRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// StartResponse is the reply to POST /api/chat/start.
type StartResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// HandleStart handles POST /api/chat/start: it creates a session and
// records the assistant's welcome message.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	// Body is optional; user_id defaults to anonymous.
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = StartRequest{}
	}

	sess, err := h.store.Create(req.UserID)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	welcome := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAgent,
		Kind:      domain.KindText,
		Content:   welcomeMessage,
		Timestamp: time.Now(),
	}
	if err := h.store.AppendMessage(sess.ID, welcome); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to initialize session")
		return
	}

	slog.Info("Chat session started", "session_id", sess.ID, "user_id", req.UserID)

	api.JSON(w, http.StatusOK, StartResponse{
		Success:   true,
		SessionID: sess.ID,
		Message:   "Chat session started successfully!",
	})
}

// HistoryResponse is the reply to GET /api/chat/history/{sessionID}.
type HistoryResponse struct {
	Success       bool             `json:"success"`
	SessionID     string           `json:"session_id"`
	Messages      []domain.Message `json:"messages"`
	TotalMessages int              `json:"total_messages"`
}

// HandleHistory handles GET /api/chat/history/{sessionID}.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			api.Error(w, http.StatusNotFound, "session not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	api.JSON(w, http.StatusOK, HistoryResponse{
		Success:       true,
		SessionID:     sess.ID,
		Messages:      sess.Messages,
		TotalMessages: len(sess.Messages),
	})
}

// ResetRequest is the body of POST /api/chat/reset.
type ResetRequest struct {
	SessionID string `json:"session_id"`
}

// HandleReset handles POST /api/chat/reset: it clears the session's
// history and course set while keeping its id.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		api.Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if _, err := h.store.Reset(req.SessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			api.Error(w, http.StatusNotFound, "session not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to reset session")
		return
	}

	slog.Info("Chat session reset", "session_id", req.SessionID)
	api.JSON(w, http.StatusOK, map[string]any{"success": true, "session_id": req.SessionID})
}

// StreamRequest is the body of POST /api/chat/stream.
type StreamRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// HandleStream handles POST /api/chat/stream: one round of chat, streamed
// back as Server-Sent Events. Request-level failures (unknown session,
// blank message, rate limit) are JSON errors; once the stream begins,
// failures surface as a stream_error frame.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		api.Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if !h.rateLimiter.Allow(req.SessionID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	seq, err := h.orch.Round(r.Context(), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionNotFound):
			api.Error(w, http.StatusNotFound, "session not found")
		case errors.Is(err, ErrEmptyMessage):
			api.Error(w, http.StatusBadRequest, "message is required")
		default:
			api.Error(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	sw, err := NewSSEWriter(w)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for ev := range seq {
		if err := sw.WriteEvent(ev); err != nil {
			// Client is gone; the round stops producing on the next pull.
			slog.Warn("Failed to write stream frame", "error", err, "session_id", req.SessionID)
			return
		}
	}
}
