package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gracepapers/coursechat/internal/domain"
)

// MemoryStore implements SessionStore in process memory. Sessions do not
// survive a restart; durability is out of scope for this service.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
	}
}

// Create allocates a new session with empty history.
func (m *MemoryStore) Create(userID string) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	return copySession(sess), nil
}

// Get returns a copy of the session so callers cannot mutate stored state
// behind the store's back.
func (m *MemoryStore) Get(sessionID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(sess), nil
}

// AppendMessage appends a message and updates LastActivityAt.
func (m *MemoryStore) AppendMessage(sessionID string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastActivityAt = time.Now()
	return nil
}

// ReplaceCourseSet overwrites the session's last shown course set.
func (m *MemoryStore) ReplaceCourseSet(sessionID string, courses []domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastCourseSet = append([]domain.Course(nil), courses...)
	return nil
}

// Reset replaces the session with a fresh one sharing the same id.
func (m *MemoryStore) Reset(sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	fresh := &domain.Session{
		ID:             old.ID,
		UserID:         old.UserID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	m.sessions[sessionID] = fresh
	return copySession(fresh), nil
}

// ExpireBefore removes sessions whose last activity predates cutoff.
func (m *MemoryStore) ExpireBefore(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if sess.LastActivityAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions are live. Used by health reporting.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func copySession(sess *domain.Session) *domain.Session {
	out := *sess
	out.Messages = append([]domain.Message(nil), sess.Messages...)
	out.LastCourseSet = append([]domain.Course(nil), sess.LastCourseSet...)
	return &out
}
