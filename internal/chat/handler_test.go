package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gracepapers/coursechat/internal/agent"
	"github.com/gracepapers/coursechat/internal/config"
	"github.com/gracepapers/coursechat/internal/store"
)

func newTestRouter(t *testing.T, inv agent.Invoker, cfg *config.Config) (chi.Router, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	orch := NewOrchestrator(s, inv, 5*time.Second, 10)
	h := NewHandler(s, orch, cfg)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, s
}

func startSession(t *testing.T, r chi.Router) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/start", strings.NewReader(`{"user_id":"user-1"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp StartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("start: failed to decode response: %v", err)
	}
	if !resp.Success || resp.SessionID == "" {
		t.Fatalf("start: unexpected response: %+v", resp)
	}
	return resp.SessionID
}

func TestStartCreatesSessionWithWelcome(t *testing.T) {
	t.Parallel()

	r, s := newTestRouter(t, &fakeInvoker{}, nil)
	sessionID := startSession(t, r)

	sess, err := s.Get(sessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(sess.Messages) != 1 {
		t.Fatalf("Expected 1 welcome message, got %d", len(sess.Messages))
	}
	if sess.Messages[0].Role != "agent" {
		t.Errorf("Expected agent welcome, got role %q", sess.Messages[0].Role)
	}
}

func TestHistoryReturnsMessages(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, &fakeInvoker{}, nil)
	sessionID := startSession(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/history/"+sessionID, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TotalMessages != 1 || len(resp.Messages) != 1 {
		t.Errorf("Expected 1 message, got %+v", resp)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, &fakeInvoker{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/history/no-such-session", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestStreamEmitsSSEFrames(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{replies: []agent.Reply{
		{Text: "Here are some options."},
		{Courses: &agent.CourseSet{Courses: testCourses(), Query: "python"}},
	}}
	r, _ := newTestRouter(t, inv, nil)
	sessionID := startSession(t, r)

	body := `{"session_id":"` + sessionID + `","message":"show me python courses"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	out := w.Body.String()
	for _, want := range []string{
		"event: message_added",
		"event: courses_ready",
		"event: stream_complete",
		`"is_update":false`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Stream missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "event: stream_error") {
		t.Errorf("Unexpected stream_error:\n%s", out)
	}
}

func TestStreamUnknownSession(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, &fakeInvoker{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat/stream",
		strings.NewReader(`{"session_id":"no-such-session","message":"hello"}`)))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Rejected request must be JSON, got %q", ct)
	}
}

func TestStreamEmptyMessage(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, &fakeInvoker{}, nil)
	sessionID := startSession(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat/stream",
		strings.NewReader(`{"session_id":"`+sessionID+`","message":"   "}`)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestStreamRateLimit(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Port:               "8080",
		AgentTimeout:       5 * time.Second,
		SessionTTL:         time.Hour,
		MaxSearchResults:   10,
		MaxRequestBodySize: 1 << 20,
		RateLimit: config.RateLimitConfig{
			RequestsPerWindow: 1,
			WindowDuration:    time.Minute,
		},
	}
	r, _ := newTestRouter(t, &fakeInvoker{}, cfg)
	sessionID := startSession(t, r)

	body := `{"session_id":"` + sessionID + `","message":"show me courses"}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("First request: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(body)))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Second request: expected 429, got %d", w.Code)
	}
}

func TestResetClearsHistory(t *testing.T) {
	t.Parallel()

	r, s := newTestRouter(t, &fakeInvoker{}, nil)
	sessionID := startSession(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat/reset",
		strings.NewReader(`{"session_id":"`+sessionID+`"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	sess, err := s.Get(sessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(sess.Messages) != 0 || len(sess.LastCourseSet) != 0 {
		t.Errorf("Expected empty session after reset, got %+v", sess)
	}
}

func TestResetUnknownSession(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, &fakeInvoker{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat/reset",
		strings.NewReader(`{"session_id":"no-such-session"}`)))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
