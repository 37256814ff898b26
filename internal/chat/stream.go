package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamingUnsupported is returned when the response writer cannot
// flush incrementally.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// FrameWriter delivers one frame of the event stream to the client. Each
// frame must reach the client independently; implementations never buffer
// across frames.
type FrameWriter interface {
	WriteEvent(ev Event) error
}

// SSEWriter writes frames as Server-Sent Events:
//
//	event: <type>
//	data: <json payload>
//
// flushing after every frame so the client observes partial progress while
// the agent is still working.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for SSE streaming and sets the stream headers.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes one frame and flushes it.
func (s *SSEWriter) WriteEvent(ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", ev.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return fmt.Errorf("write %s frame: %w", ev.Type, err)
	}
	s.flusher.Flush()
	return nil
}
