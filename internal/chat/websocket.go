package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gracepapers/coursechat/internal/store"
)

// wsInbound is one client message on the websocket transport.
type wsInbound struct {
	Message string `json:"message"`
}

// wsFrame wraps a stream event for the websocket transport, where the
// event type travels inside the JSON instead of an SSE event line.
type wsFrame struct {
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

// wsFrameWriter adapts websocket.Conn to FrameWriter. Each frame is one
// text message, so the client observes partial progress the same way an
// SSE consumer does.
type wsFrameWriter struct {
	conn *websocket.Conn
	ctx  context.Context
}

func (w *wsFrameWriter) WriteEvent(ev Event) error {
	data, err := json.Marshal(wsFrame{Event: ev.Type, Data: ev.Data})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", ev.Type, err)
	}
	return w.conn.Write(w.ctx, websocket.MessageText, data)
}

// HandleWS handles GET /ws/chat?session_id=...: a long-lived websocket
// carrying the same rounds as POST /api/chat/stream. Each inbound text
// message runs one round; its frames stream back before the next message
// is read.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, `{"error": "session_id is required"}`, http.StatusBadRequest)
		return
	}
	if _, err := h.store.Get(sessionID); err != nil {
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.wsOrigins,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	slog.Info("WebSocket chat connected", "session_id", sessionID, "ip", r.RemoteAddr)

	ctx := r.Context()
	fw := &wsFrameWriter{conn: ws, ctx: ctx}

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var in wsInbound
		if err := json.Unmarshal(data, &in); err != nil {
			if err := h.writeWSError(ctx, ws, "invalid message"); err != nil {
				return
			}
			continue
		}

		if !h.rateLimiter.Allow(sessionID) {
			if err := h.writeWSError(ctx, ws, "rate limit exceeded"); err != nil {
				return
			}
			continue
		}

		seq, err := h.orch.Round(ctx, sessionID, in.Message)
		if err != nil {
			msg := "failed to process message"
			switch {
			case errors.Is(err, store.ErrSessionNotFound):
				msg = "session not found"
			case errors.Is(err, ErrEmptyMessage):
				msg = "message is required"
			}
			if err := h.writeWSError(ctx, ws, msg); err != nil {
				return
			}
			continue
		}

		for ev := range seq {
			if err := fw.WriteEvent(ev); err != nil {
				slog.Debug("WebSocket write error", "error", err, "session_id", sessionID)
				return
			}
		}
	}
}

func (h *Handler) writeWSError(ctx context.Context, ws *websocket.Conn, msg string) error {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
