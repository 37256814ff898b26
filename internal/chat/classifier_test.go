package chat

import (
	"testing"

	"github.com/gracepapers/coursechat/internal/domain"
)

func sessionWithCourses() *domain.Session {
	return &domain.Session{
		ID: "sess-1",
		LastCourseSet: []domain.Course{
			{ID: "py-101", Title: "Python for Everybody"},
		},
	}
}

func TestClassifyNoPriorCourses(t *testing.T) {
	t.Parallel()

	sess := &domain.Session{ID: "sess-1"}

	// Keyword-bearing text still classifies as a new search when the
	// session has never shown courses.
	d := Classify(sess, "show me beginner courses")
	if d.IsModification {
		t.Error("Expected IsModification=false without prior courses")
	}
	if d.Reason != ReasonNoPriorCourses {
		t.Errorf("Expected reason %q, got %q", ReasonNoPriorCourses, d.Reason)
	}
}

func TestClassifyKeywordMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"level keyword", "show me beginner courses", true},
		{"correction keyword", "actually I want marketing courses", true},
		{"multiword keyword", "something more advanced please", true},
		{"case folded", "INSTEAD show me Excel", true},
		{"keyword inside negation", "not more advanced", true},
		{"substring of larger word", "I like peanut butter", true}, // "but"
		{"no keyword", "hello there", false},
		{"plain new topic", "show me python courses", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := Classify(sessionWithCourses(), tt.text)
			if d.IsModification != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, d.IsModification, tt.want)
			}

			wantReason := ReasonNoKeywordMatch
			if tt.want {
				wantReason = ReasonMatched
			}
			if d.Reason != wantReason {
				t.Errorf("Classify(%q) reason = %q, want %q", tt.text, d.Reason, wantReason)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	sess := sessionWithCourses()
	first := Classify(sess, "make it more specific")
	for i := 0; i < 5; i++ {
		if got := Classify(sess, "make it more specific"); got != first {
			t.Fatalf("Classification changed between calls: %+v vs %+v", got, first)
		}
	}
}
