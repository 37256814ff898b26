// Package agent implements the reasoning boundary behind the chat
// orchestrator: it turns conversation history into assistant utterances
// and, at most once per invocation, a set of recommended courses.
package agent

import (
	"context"
	"errors"
	"iter"

	"github.com/gracepapers/coursechat/internal/domain"
)

var (
	// ErrAgentUnavailable signals the reasoning backend could not be
	// reached or failed to initialize.
	ErrAgentUnavailable = errors.New("agent unavailable")
	// ErrAgentTimeout signals the invocation exceeded its deadline.
	ErrAgentTimeout = errors.New("agent timed out")
	// ErrToolFailure signals the course-search capability failed while
	// the agent was using it.
	ErrToolFailure = errors.New("course search failed")
)

// Turn is one role-tagged utterance of prior conversation history.
type Turn struct {
	Role domain.Role
	Text string
}

// Request carries one round of conversation to the reasoning backend.
type Request struct {
	SessionID string
	// History is the prior conversation, oldest first, excluding Text.
	History []Turn
	// Text is the new user message.
	Text string
	// IsModification hints that the user is refining previously shown
	// results rather than starting a new search.
	IsModification bool
	// MaxResults bounds the size of a returned course set.
	MaxResults int
}

// CourseSet is the outcome of the agent calling the search capability.
type CourseSet struct {
	Courses []domain.Course
	Query   string
}

// Reply is a single agent output: either a text utterance or a course set,
// never both.
type Reply struct {
	Text    string
	Courses *CourseSet
}

// Invoker is the external reasoning boundary. Invoke yields zero or more
// text replies in order, then at most one course-set reply. A yielded
// error terminates the sequence; it wraps one of the sentinel errors
// above.
type Invoker interface {
	Invoke(ctx context.Context, req Request) iter.Seq2[*Reply, error]

	// Ready reports whether the reasoning backend is usable. Used by
	// health reporting only.
	Ready() bool
}
