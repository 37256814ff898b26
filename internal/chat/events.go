package chat

import (
	"github.com/gracepapers/coursechat/internal/domain"
)

// EventType tags one frame of the round's output stream.
type EventType string

const (
	// EventMessageAdded announces a message appended to the session:
	// first the user echo, then agent utterances in production order.
	EventMessageAdded EventType = "message_added"
	// EventCoursesReady carries the round's course results; at most one
	// per round.
	EventCoursesReady EventType = "courses_ready"
	// EventStreamComplete terminates a successful round.
	EventStreamComplete EventType = "stream_complete"
	// EventStreamError terminates a failed round.
	EventStreamError EventType = "stream_error"
)

// Event is one self-contained frame of the stream. Data marshals to the
// frame's JSON payload.
type Event struct {
	Type EventType
	Data any
}

// Terminal reports whether this event ends the round's stream.
func (e Event) Terminal() bool {
	return e.Type == EventStreamComplete || e.Type == EventStreamError
}

// MessageAddedPayload is the payload of a message_added frame.
type MessageAddedPayload struct {
	SessionID string         `json:"session_id"`
	Message   domain.Message `json:"message"`
}

// CoursesReadyPayload is the payload of a courses_ready frame. IsUpdate
// mirrors the round's modification decision exactly.
type CoursesReadyPayload struct {
	SessionID    string          `json:"session_id"`
	Courses      []domain.Course `json:"courses"`
	TotalResults int             `json:"total_results"`
	Query        string          `json:"query"`
	IsUpdate     bool            `json:"is_update"`
}

// CompletePayload is the payload of a stream_complete frame.
type CompletePayload struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// ErrorPayload is the payload of a stream_error frame.
type ErrorPayload struct {
	Error string `json:"error"`
}
