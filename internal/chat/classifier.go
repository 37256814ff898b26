// Package chat implements the streaming chat session protocol: the round
// orchestrator, the modification classifier, the event stream formatter
// and the HTTP/WebSocket transports.
package chat

import (
	"strings"

	"github.com/gracepapers/coursechat/internal/domain"
)

// DecisionReason explains a classification outcome.
type DecisionReason string

const (
	// ReasonNoPriorCourses: the session has never shown courses, so there
	// is nothing to modify.
	ReasonNoPriorCourses DecisionReason = "no_prior_courses"
	// ReasonNoKeywordMatch: prior courses exist but the text carries no
	// refinement keyword.
	ReasonNoKeywordMatch DecisionReason = "no_keyword_match"
	// ReasonMatched: prior courses exist and a refinement keyword matched.
	ReasonMatched DecisionReason = "matched"
)

// ModificationDecision is the per-round classification result. It is
// computed fresh for every request and never persisted.
type ModificationDecision struct {
	IsModification bool
	Reason         DecisionReason
}

// modificationKeywords marks a message as refining earlier results.
// Substring matching on case-folded text. The matching is deliberately
// imprecise ("not more advanced" still matches "more advanced"); keep the
// list and the matching rule stable.
var modificationKeywords = []string{
	"instead", "actually", "change", "modify", "update", "different",
	"rather", "but", "however", "more specific", "more advanced",
	"beginner", "intermediate", "advanced", "also include", "exclude",
}

// Classify decides whether userText refines the session's previously shown
// courses rather than starting a new search. Deterministic: same session
// state and text always yield the same decision.
func Classify(sess *domain.Session, userText string) ModificationDecision {
	if !sess.HasPriorCourses() {
		return ModificationDecision{IsModification: false, Reason: ReasonNoPriorCourses}
	}

	lower := strings.ToLower(userText)
	for _, kw := range modificationKeywords {
		if strings.Contains(lower, kw) {
			return ModificationDecision{IsModification: true, Reason: ReasonMatched}
		}
	}
	return ModificationDecision{IsModification: false, Reason: ReasonNoKeywordMatch}
}
