package search

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/gracepapers/coursechat/internal/domain"
)

// TemplateSearcher generates deterministic placeholder courses from the
// query text. It backs the offline agent and serves as the fallback search
// capability when no catalog is provisioned.
type TemplateSearcher struct{}

const templateMaxCourses = 3

var templateLevels = []string{"Beginner", "Intermediate", "Advanced"}

// Search returns up to three synthetic courses derived from the query.
// Same query, same output.
func (TemplateSearcher) Search(_ context.Context, query string, limit int) ([]domain.Course, error) {
	topic := titleWords(strings.TrimSpace(query))
	if topic == "" {
		return nil, nil
	}

	n := limit
	if n <= 0 || n > templateMaxCourses {
		n = templateMaxCourses
	}

	courses := make([]domain.Course, 0, n)
	for i := 0; i < n; i++ {
		courses = append(courses, domain.Course{
			ID:             fmt.Sprintf("template-course-%d", i+1),
			Title:          fmt.Sprintf("%s Course %d", topic, i+1),
			Provider:       "Mock University",
			Level:          templateLevels[i%len(templateLevels)],
			Skills:         []string{topic, "Learning"},
			Description:    fmt.Sprintf("A comprehensive course about %s", query),
			RelevanceScore: 0.8 - float64(i)*0.1,
		})
	}
	return courses, nil
}

func titleWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
