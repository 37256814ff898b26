package search

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "courses.db"))
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalogSeedsOnFirstOpen(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	n, err := c.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n == 0 {
		t.Fatal("expected seeded catalog to be non-empty")
	}
}

func TestCatalogSearchRanksTitleMatchesFirst(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	courses, err := c.Search(context.Background(), "python", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(courses) == 0 {
		t.Fatal("expected results for python query")
	}

	// Courses with python in the title must outrank skill-only matches.
	for i := 1; i < len(courses); i++ {
		if courses[i].RelevanceScore > courses[i-1].RelevanceScore {
			t.Fatalf("results not sorted by relevance at index %d", i)
		}
	}
	if got := courses[0].Title; got != "Python for Everybody" &&
		got != "Intermediate Python Programming" &&
		got != "Advanced Python: Concurrency and Performance" {
		t.Errorf("expected a python-titled course first, got %q", got)
	}
}

func TestCatalogSearchRespectsLimit(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	courses, err := c.Search(context.Background(), "data analysis", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(courses) > 2 {
		t.Fatalf("expected at most 2 results, got %d", len(courses))
	}
}

func TestCatalogSearchNoMatch(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	courses, err := c.Search(context.Background(), "zzzzxqwv", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected no matches, got %d", len(courses))
	}
}

func TestCatalogSearchBlankQuery(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	courses, err := c.Search(context.Background(), "  a  ", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected no results for stop-word-only query, got %d", len(courses))
	}
}
