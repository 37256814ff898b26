package agent

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/gracepapers/coursechat/internal/search"
)

// OfflineInvoker answers without a reasoning backend. It is used when no
// API key is configured: course-sounding requests get a canned reply plus
// results straight from the searcher, everything else gets a greeting.
type OfflineInvoker struct {
	searcher search.Searcher
}

// NewOfflineInvoker creates the no-backend fallback invoker.
func NewOfflineInvoker(searcher search.Searcher) *OfflineInvoker {
	return &OfflineInvoker{searcher: searcher}
}

// Ready always reports false; the reasoning backend is absent.
func (v *OfflineInvoker) Ready() bool { return false }

// courseKeywords marks a message as a learning/course request. Substring
// matching on the case-folded text, same trade-offs as the modification
// classifier.
var courseKeywords = []string{
	"learn", "course", "study", "education", "training", "skill", "tutorial",
	"programming", "coding", "development", "data science", "machine learning",
	"python", "javascript", "web development", "ai", "artificial intelligence",
	"business analysis", "excel", "sql", "marketing", "design", "photography",
	"language", "math", "science", "certification", "degree", "bootcamp",
	"beginner", "intermediate", "advanced", "free course", "online course",
}

func courseRelated(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range courseKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Invoke yields one canned utterance and, for course-sounding requests, a
// course set from the searcher.
func (v *OfflineInvoker) Invoke(ctx context.Context, req Request) iter.Seq2[*Reply, error] {
	return func(yield func(*Reply, error) bool) {
		if !courseRelated(req.Text) {
			yield(&Reply{Text: "Hello! I'm here to help. While I specialize in finding courses, I can chat about other topics too."}, nil)
			return
		}

		if !yield(&Reply{Text: "I can help you find courses! Let me search for some options..."}, nil) {
			return
		}

		limit := req.MaxResults
		if limit <= 0 {
			limit = search.DefaultLimit
		}
		courses, err := v.searcher.Search(ctx, req.Text, limit)
		if err != nil {
			yield(nil, fmt.Errorf("%w: %v", ErrToolFailure, err))
			return
		}
		if len(courses) == 0 {
			yield(&Reply{Text: "I couldn't find exact matches. Could you try rephrasing or be more specific about what you'd like to learn?"}, nil)
			return
		}
		yield(&Reply{Courses: &CourseSet{Courses: courses, Query: req.Text}}, nil)
	}
}
