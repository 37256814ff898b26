package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gracepapers/coursechat/internal/domain"
	"github.com/gracepapers/coursechat/internal/search"
)

func TestBuildMessagesIncludesSystemHistoryAndUserText(t *testing.T) {
	t.Parallel()

	v := NewOpenAIInvoker("test-key", "", "gpt-4o", search.TemplateSearcher{})
	req := Request{
		History: []Turn{
			{Role: domain.RoleUser, Text: "hi"},
			{Role: domain.RoleAgent, Text: "hello"},
		},
		Text: "teach me python",
	}

	msgs := v.buildMessages(req)
	// system + 2 history turns + new user message
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
}

func TestBuildMessagesCapsHistory(t *testing.T) {
	t.Parallel()

	v := NewOpenAIInvoker("test-key", "", "gpt-4o", search.TemplateSearcher{})
	req := Request{Text: "more"}
	for i := 0; i < 30; i++ {
		req.History = append(req.History, Turn{Role: domain.RoleUser, Text: fmt.Sprintf("turn %d", i)})
	}

	msgs := v.buildMessages(req)
	if len(msgs) != maxHistoryTurns+2 {
		t.Fatalf("expected %d messages, got %d", maxHistoryTurns+2, len(msgs))
	}
}

func TestClassifyCompletionErr(t *testing.T) {
	t.Parallel()

	if err := classifyCompletionErr(context.DeadlineExceeded); !errors.Is(err, ErrAgentTimeout) {
		t.Errorf("deadline exceeded should map to ErrAgentTimeout, got %v", err)
	}
	if err := classifyCompletionErr(errors.New("connection refused")); !errors.Is(err, ErrAgentUnavailable) {
		t.Errorf("transport failure should map to ErrAgentUnavailable, got %v", err)
	}
	if err := classifyCompletionErr(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("cancellation should pass through, got %v", err)
	}
}

func TestLooksLikeToolJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		content string
		want    bool
	}{
		{`{"courses": [], "total_results": 0}`, true},
		{`{"success": true}`, true},
		{`[{"id": "c1"}]`, true},
		{`{not json`, false},
		{`Here are some courses for you`, false},
		{`{"note": "plain object without tool keys"}`, false},
		{`[]`, false},
	}
	for _, tc := range cases {
		if got := looksLikeToolJSON(tc.content); got != tc.want {
			t.Errorf("looksLikeToolJSON(%q) = %v, want %v", tc.content, got, tc.want)
		}
	}
}

func TestIsUserEcho(t *testing.T) {
	t.Parallel()

	cases := []struct {
		content string
		user    string
		want    bool
	}{
		{"I want to learn Python", "I want to learn Python", true},
		{"i want to learn python", "I want to learn Python", true},
		{"Sure! Here are some great ways to learn Python with courses, books and projects.", "learn Python", false},
		{"", "learn Python", false},
		{"I want to learn Python!", "I want to learn Python", true},
	}
	for _, tc := range cases {
		if got := isUserEcho(tc.content, tc.user); got != tc.want {
			t.Errorf("isUserEcho(%q, %q) = %v, want %v", tc.content, tc.user, got, tc.want)
		}
	}
}

func TestOfflineInvokerCourseRequest(t *testing.T) {
	t.Parallel()

	v := NewOfflineInvoker(search.TemplateSearcher{})
	var texts []string
	var courseSet *CourseSet
	for reply, err := range v.Invoke(context.Background(), Request{Text: "I want to learn Python"}) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.Text != "" {
			texts = append(texts, reply.Text)
		}
		if reply.Courses != nil {
			courseSet = reply.Courses
		}
	}

	if len(texts) == 0 {
		t.Fatal("expected at least one utterance")
	}
	if courseSet == nil || len(courseSet.Courses) == 0 {
		t.Fatal("expected a course set for a course-related request")
	}
	if courseSet.Query != "I want to learn Python" {
		t.Errorf("unexpected query: %q", courseSet.Query)
	}
}

func TestOfflineInvokerSmallTalk(t *testing.T) {
	t.Parallel()

	v := NewOfflineInvoker(search.TemplateSearcher{})
	var replies []*Reply
	for reply, err := range v.Invoke(context.Background(), Request{Text: "how was your weekend"}) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		replies = append(replies, reply)
	}

	if len(replies) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(replies))
	}
	if replies[0].Courses != nil {
		t.Fatal("small talk must not produce a course set")
	}
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, string, int) ([]domain.Course, error) {
	return nil, errors.New("index offline")
}

func TestOfflineInvokerSurfacesToolFailure(t *testing.T) {
	t.Parallel()

	v := NewOfflineInvoker(failingSearcher{})
	var last error
	for _, err := range v.Invoke(context.Background(), Request{Text: "learn sql"}) {
		if err != nil {
			last = err
		}
	}
	if !errors.Is(last, ErrToolFailure) {
		t.Fatalf("expected ErrToolFailure, got %v", last)
	}
}
