// Package store provides the in-process session store.
package store

import (
	"errors"
	"time"

	"github.com/gracepapers/coursechat/internal/domain"
)

// ErrSessionNotFound is returned when a session id is unknown. It is a
// recoverable condition the caller must handle, not a crash.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore maps session ids to sessions. Single-writer-per-session is
// assumed by callers; the store itself is safe for concurrent use.
type SessionStore interface {
	// Create allocates a new session with empty history.
	Create(userID string) (*domain.Session, error)

	// Get returns a copy of the session, or ErrSessionNotFound.
	Get(sessionID string) (*domain.Session, error)

	// AppendMessage appends a message to the session history and updates
	// LastActivityAt. History is append-only; messages are never mutated.
	AppendMessage(sessionID string, msg domain.Message) error

	// ReplaceCourseSet overwrites the session's last shown course set.
	// It does not append a message; the orchestrator decides whether to
	// record a course-set message alongside.
	ReplaceCourseSet(sessionID string, courses []domain.Course) error

	// Reset replaces the session with a fresh one sharing the same id.
	Reset(sessionID string) (*domain.Session, error)

	// ExpireBefore removes sessions whose last activity predates cutoff
	// and returns how many were removed.
	ExpireBefore(cutoff time.Time) int
}
