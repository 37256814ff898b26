package search

import (
	"context"
	"reflect"
	"testing"
)

func TestTemplateSearcherIsDeterministic(t *testing.T) {
	t.Parallel()

	s := TemplateSearcher{}
	first, err := s.Search(context.Background(), "python programming", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	second, err := s.Search(context.Background(), "python programming", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results across runs:\n%+v\n%+v", first, second)
	}
}

func TestTemplateSearcherShape(t *testing.T) {
	t.Parallel()

	s := TemplateSearcher{}
	courses, err := s.Search(context.Background(), "data analysis", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(courses) != 3 {
		t.Fatalf("expected 3 template courses, got %d", len(courses))
	}
	if courses[0].Title != "Data Analysis Course 1" {
		t.Errorf("unexpected title: %q", courses[0].Title)
	}
	if courses[0].Level != "Beginner" || courses[1].Level != "Intermediate" || courses[2].Level != "Advanced" {
		t.Errorf("unexpected level cycle: %s/%s/%s", courses[0].Level, courses[1].Level, courses[2].Level)
	}
	if courses[0].RelevanceScore <= courses[1].RelevanceScore {
		t.Error("expected descending relevance scores")
	}
}

func TestTemplateSearcherEmptyQuery(t *testing.T) {
	t.Parallel()

	s := TemplateSearcher{}
	courses, err := s.Search(context.Background(), "   ", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected no courses for blank query, got %d", len(courses))
	}
}
