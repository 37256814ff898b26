package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gracepapers/coursechat/internal/agent"
	"github.com/gracepapers/coursechat/internal/domain"
	"github.com/gracepapers/coursechat/internal/store"
)

// ErrEmptyMessage rejects blank user input before any stream begins.
var ErrEmptyMessage = errors.New("message is required")

// Orchestrator drives one round per user message: accept, classify,
// invoke the agent, and emit the round's ordered event stream.
//
// Single-writer-per-session is assumed: callers must not run concurrent
// rounds for the same session. The store stays memory-safe if they do, but
// the interleaving of appended messages is undefined.
type Orchestrator struct {
	store        store.SessionStore
	invoker      agent.Invoker
	agentTimeout time.Duration
	maxResults   int
}

// NewOrchestrator wires the orchestrator's collaborators. agentTimeout
// bounds each agent invocation; maxResults bounds a round's course set.
func NewOrchestrator(s store.SessionStore, invoker agent.Invoker, agentTimeout time.Duration, maxResults int) *Orchestrator {
	return &Orchestrator{
		store:        s,
		invoker:      invoker,
		agentTimeout: agentTimeout,
		maxResults:   maxResults,
	}
}

// Round accepts one user message for the session and returns the round's
// event sequence. Accepting-stage failures — unknown session, blank text —
// are returned as the error with no sequence and no session mutation; no
// stream has begun, so they are request-level conditions, not frames.
//
// The returned sequence yields frames in protocol order: the user echo
// first, then agent utterances, then at most one courses_ready, and ends
// with exactly one terminal frame (stream_complete or stream_error). The
// sequence is pull-driven, so the caller can flush each frame before the
// next one is produced; the user echo reaches the client before the agent
// call blocks.
func (o *Orchestrator) Round(ctx context.Context, sessionID, text string) (iter.Seq[Event], error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	// Snapshot before appending: classification looks at what the user
	// had already been shown when they typed this message.
	sess, err := o.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	decision := Classify(sess, text)

	userMsg := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Kind:      domain.KindText,
		Content:   text,
		Timestamp: time.Now(),
	}
	if err := o.store.AppendMessage(sessionID, userMsg); err != nil {
		return nil, err
	}

	slog.Info("Chat round accepted",
		"session_id", sessionID,
		"message_length", len(text),
		"is_modification", decision.IsModification,
		"reason", decision.Reason,
	)

	seq := func(yield func(Event) bool) {
		if !yield(Event{Type: EventMessageAdded, Data: MessageAddedPayload{SessionID: sessionID, Message: userMsg}}) {
			return
		}

		ictx, cancel := context.WithTimeout(ctx, o.agentTimeout)
		defer cancel()

		req := agent.Request{
			SessionID:      sessionID,
			History:        historyTurns(sess),
			Text:           text,
			IsModification: decision.IsModification,
			MaxResults:     o.maxResults,
		}

		coursesEmitted := false
		for reply, err := range o.invoker.Invoke(ictx, req) {
			if err != nil {
				yield(o.errorEvent(sessionID, err))
				return
			}

			switch {
			case reply.Courses != nil:
				if coursesEmitted {
					// At most one course set per round; drop extras.
					slog.Warn("Agent produced a second course set, ignoring", "session_id", sessionID)
					continue
				}
				ev, err := o.recordCourseSet(sessionID, reply.Courses, decision)
				if err != nil {
					yield(o.errorEvent(sessionID, err))
					return
				}
				coursesEmitted = true
				if !yield(ev) {
					return
				}

			case reply.Text != "":
				agentMsg := domain.Message{
					ID:        uuid.NewString(),
					Role:      domain.RoleAgent,
					Kind:      domain.KindText,
					Content:   reply.Text,
					Timestamp: time.Now(),
				}
				if err := o.store.AppendMessage(sessionID, agentMsg); err != nil {
					yield(o.errorEvent(sessionID, err))
					return
				}
				if !yield(Event{Type: EventMessageAdded, Data: MessageAddedPayload{SessionID: sessionID, Message: agentMsg}}) {
					return
				}
			}
		}

		yield(Event{Type: EventStreamComplete, Data: CompletePayload{SessionID: sessionID, Status: "success"}})
	}
	return seq, nil
}

// recordCourseSet persists the round's course results and builds the
// courses_ready frame. The session keeps both the raw course set and a
// course-set message in its history.
func (o *Orchestrator) recordCourseSet(sessionID string, set *agent.CourseSet, decision ModificationDecision) (Event, error) {
	if err := o.store.ReplaceCourseSet(sessionID, set.Courses); err != nil {
		return Event{}, err
	}

	courseMsg := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAgent,
		Kind:      domain.KindCourseSet,
		Content:   set.Query,
		Courses:   set.Courses,
		Timestamp: time.Now(),
	}
	if err := o.store.AppendMessage(sessionID, courseMsg); err != nil {
		return Event{}, err
	}

	return Event{
		Type: EventCoursesReady,
		Data: CoursesReadyPayload{
			SessionID:    sessionID,
			Courses:      set.Courses,
			TotalResults: len(set.Courses),
			Query:        set.Query,
			IsUpdate:     decision.IsModification,
		},
	}, nil
}

// errorEvent converts a round failure into the terminal stream_error
// frame. Deadline expiry outside the invoker is still an agent timeout.
func (o *Orchestrator) errorEvent(sessionID string, err error) Event {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, agent.ErrAgentTimeout) {
		err = fmt.Errorf("%w: %v", agent.ErrAgentTimeout, err)
	}
	slog.Error("Chat round failed", "session_id", sessionID, "error", err)
	return Event{Type: EventStreamError, Data: ErrorPayload{Error: err.Error()}}
}

// historyTurns projects the session's text messages into the role-tagged
// history the agent replays. Course-set messages stay out: the agent sees
// them through its own tool results, not as chat turns.
func historyTurns(sess *domain.Session) []agent.Turn {
	turns := make([]agent.Turn, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		if msg.Kind != domain.KindText {
			continue
		}
		turns = append(turns, agent.Turn{Role: msg.Role, Text: msg.Content})
	}
	return turns
}
