// Package domain holds the core chat types shared across the server.
package domain

import (
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	// RoleUser marks a message typed by the learner.
	RoleUser Role = "user"
	// RoleAgent marks a message produced by the research assistant.
	RoleAgent Role = "agent"
)

// MessageKind discriminates the two message payload shapes.
type MessageKind string

const (
	// KindText is a plain conversational utterance.
	KindText MessageKind = "text"
	// KindCourseSet is a labeled set of recommended courses.
	KindCourseSet MessageKind = "course_set"
)

// Message is a single immutable entry in a session's history.
// Content is set for KindText; Courses is set for KindCourseSet.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Kind      MessageKind `json:"kind"`
	Content   string      `json:"content,omitempty"`
	Courses   []Course    `json:"courses,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Session is one ongoing conversation between a client and the assistant.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	Messages       []Message `json:"messages"`
	LastCourseSet  []Course  `json:"last_course_set,omitempty"`
}

// HasPriorCourses reports whether this session has already shown the
// learner a set of recommended courses.
func (s *Session) HasPriorCourses() bool {
	return len(s.LastCourseSet) > 0
}
