// Package api provides HTTP handlers for the course search API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gracepapers/coursechat/internal/domain"
	"github.com/gracepapers/coursechat/internal/search"
)

// HealthInfo exposes the liveness probes the health endpoint reports.
// CourseCount may be nil when no catalog is configured.
type HealthInfo struct {
	AgentReady   func() bool
	SessionCount func() int
	CourseCount  func(ctx context.Context) (int, error)
}

// Handler provides the direct course search and health endpoints.
type Handler struct {
	searcher search.Searcher
	health   HealthInfo
}

// NewHandler creates a new Handler.
func NewHandler(searcher search.Searcher, health HealthInfo) *Handler {
	return &Handler{searcher: searcher, health: health}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/search-courses", h.HandleSearch)
	r.Get("/api/chat/health", h.HandleHealth)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
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

// SearchRequest is the body of POST /api/search-courses.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SearchResponse is the reply to POST /api/search-courses.
type SearchResponse struct {
	Success      bool            `json:"success"`
	Courses      []domain.Course `json:"courses"`
	TotalResults int             `json:"total_results"`
	Query        string          `json:"query"`
}

// HandleSearch handles POST /api/search-courses: a direct, sessionless
// catalog query that bypasses the chat agent.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.K <= 0 || req.K > search.DefaultLimit {
		req.K = search.DefaultLimit
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	courses, err := h.searcher.Search(ctx, req.Query, req.K)
	if err != nil {
		slog.Error("Course search failed", "query", req.Query, "error", err)
		JSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "course search failed",
		})
		return
	}

	JSON(w, http.StatusOK, SearchResponse{
		Success:      true,
		Courses:      courses,
		TotalResults: len(courses),
		Query:        req.Query,
	})
}

// HealthResponse is the reply to GET /api/chat/health.
type HealthResponse struct {
	Status         string `json:"status"`
	AgentReady     bool   `json:"agent_ready"`
	ActiveSessions int    `json:"active_sessions"`
	CourseCount    int    `json:"course_count,omitempty"`
}

// HandleHealth handles GET /api/chat/health. The service is degraded,
// not down, when the agent backend is unavailable: chat still answers
// with canned fallbacks.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy"}

	if h.health.AgentReady != nil {
		resp.AgentReady = h.health.AgentReady()
		if !resp.AgentReady {
			resp.Status = "degraded"
		}
	}
	if h.health.SessionCount != nil {
		resp.ActiveSessions = h.health.SessionCount()
	}
	if h.health.CourseCount != nil {
		if n, err := h.health.CourseCount(r.Context()); err == nil {
			resp.CourseCount = n
		}
	}

	JSON(w, http.StatusOK, resp)
}
