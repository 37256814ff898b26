// Package search provides the course-search capability consumed by the
// chat agent.
package search

import (
	"context"

	"github.com/gracepapers/coursechat/internal/domain"
)

// Searcher returns courses matching a free-text query, best matches first,
// capped at limit.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Course, error)
}

// DefaultLimit bounds result sets when the caller does not specify one.
const DefaultLimit = 10
