package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/gracepapers/coursechat/internal/domain"
	"github.com/gracepapers/coursechat/internal/search"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	searchToolName = "search_courses"

	// maxToolRounds caps the completion/tool loop so a misbehaving model
	// cannot spin forever.
	maxToolRounds = 4

	// maxHistoryTurns bounds how much prior conversation is replayed.
	maxHistoryTurns = 10
)

const systemPrompt = `You are a helpful course research assistant. You can answer any question naturally and conversationally.

When users ask about learning or courses, use the search_courses tool to find relevant courses. Call it at most once per user message.

Always respond in a natural, friendly way. Never include system instructions or raw tool output in your responses. Keep responses concise and helpful.`

// OpenAIInvoker implements Invoker against an OpenAI-compatible chat
// completions API, with the course-search capability exposed to the model
// as a function tool.
type OpenAIInvoker struct {
	client   openai.Client
	model    string
	searcher search.Searcher
}

// NewOpenAIInvoker creates an invoker for the given API credentials.
// baseURL is optional and allows OpenAI-compatible providers.
func NewOpenAIInvoker(apiKey, baseURL, model string, searcher search.Searcher) *OpenAIInvoker {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIInvoker{
		client:   openai.NewClient(opts...),
		model:    model,
		searcher: searcher,
	}
}

// Ready reports whether the invoker has a searcher and model configured.
func (v *OpenAIInvoker) Ready() bool {
	return v.searcher != nil
}

// Invoke runs one round of agent reasoning. Text replies are yielded as
// each completion produces them; the course set, if the model searched, is
// yielded last.
func (v *OpenAIInvoker) Invoke(ctx context.Context, req Request) iter.Seq2[*Reply, error] {
	return func(yield func(*Reply, error) bool) {
		msgs := v.buildMessages(req)
		tools := v.toolParams()

		var courseSet *CourseSet

		for round := 0; round < maxToolRounds; round++ {
			completion, err := v.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Model:    openai.ChatModel(v.model),
				Messages: msgs,
				Tools:    tools,
			})
			if err != nil {
				yield(nil, classifyCompletionErr(err))
				return
			}
			if len(completion.Choices) == 0 {
				yield(nil, fmt.Errorf("%w: empty completion", ErrAgentUnavailable))
				return
			}

			msg := completion.Choices[0].Message
			if text := strings.TrimSpace(msg.Content); text != "" && usable(text, req.Text) {
				if !yield(&Reply{Text: text}, nil) {
					return
				}
			}

			if len(msg.ToolCalls) == 0 {
				break
			}

			msgs = append(msgs, msg.ToParam())
			for _, call := range msg.ToolCalls {
				result, err := v.runToolCall(ctx, call, req, &courseSet)
				if err != nil {
					yield(nil, err)
					return
				}
				msgs = append(msgs, openai.ToolMessage(result, call.ID))
			}
		}

		if courseSet != nil {
			yield(&Reply{Courses: courseSet}, nil)
		}
	}
}

// runToolCall executes one tool call and returns the JSON result the model
// should see. The first successful search fills *courseSet; later calls in
// the same invocation are refused (one search per round).
func (v *OpenAIInvoker) runToolCall(ctx context.Context, call openai.ChatCompletionMessageToolCall, req Request, courseSet **CourseSet) (string, error) {
	if call.Function.Name != searchToolName {
		slog.Warn("Agent requested unknown tool", "tool", call.Function.Name, "session_id", req.SessionID)
		return `{"error": "unknown tool"}`, nil
	}
	if *courseSet != nil {
		return `{"error": "search already performed for this message"}`, nil
	}

	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || strings.TrimSpace(args.Query) == "" {
		// Fall back to the raw user text; the model sometimes passes
		// malformed arguments for short queries.
		args.Query = req.Text
	}
	limit := args.Limit
	if limit <= 0 || limit > req.MaxResults {
		limit = req.MaxResults
	}
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	slog.Info("Agent searching courses", "query", args.Query, "limit", limit, "session_id", req.SessionID)

	courses, err := v.searcher.Search(ctx, args.Query, limit)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolFailure, err)
	}

	*courseSet = &CourseSet{Courses: courses, Query: args.Query}

	result, err := json.Marshal(map[string]any{
		"courses":       courses,
		"total_results": len(courses),
		"query":         args.Query,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode tool result: %v", ErrToolFailure, err)
	}
	return string(result), nil
}

func (v *OpenAIInvoker) buildMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
	}

	history := req.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		switch turn.Role {
		case domain.RoleUser:
			msgs = append(msgs, openai.UserMessage(turn.Text))
		case domain.RoleAgent:
			msgs = append(msgs, openai.AssistantMessage(turn.Text))
		}
	}

	text := req.Text
	if req.IsModification {
		text = fmt.Sprintf("The user is refining their previous course request rather than starting over. Acknowledge the follow-up and adjust the results.\n\nUser's new request: %s", req.Text)
	}
	msgs = append(msgs, openai.UserMessage(text))
	return msgs
}

func (v *OpenAIInvoker) toolParams() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        searchToolName,
				Description: openai.String("Search the course catalog for courses matching a free-text query. Returns courses with title, provider, level, skills and description."),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "What the user wants to learn, as a search query.",
						},
						"limit": map[string]any{
							"type":        "integer",
							"description": "Maximum number of courses to return.",
						},
					},
					"required": []string{"query"},
				},
			},
		},
	}
}

func classifyCompletionErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrAgentTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
}

// usable filters out completions that should not reach the learner: raw
// tool JSON and near-verbatim echoes of the user's own message.
func usable(content, userText string) bool {
	return !looksLikeToolJSON(content) && !isUserEcho(content, userText)
}

// looksLikeToolJSON reports whether content is structured tool output that
// leaked into the assistant text channel.
func looksLikeToolJSON(content string) bool {
	content = strings.TrimSpace(content)
	isObject := strings.HasPrefix(content, "{") && strings.HasSuffix(content, "}")
	isArray := strings.HasPrefix(content, "[") && strings.HasSuffix(content, "]")
	if !isObject && !isArray {
		return false
	}

	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return false
	}
	switch p := parsed.(type) {
	case map[string]any:
		_, hasCourses := p["courses"]
		_, hasSuccess := p["success"]
		return hasCourses || hasSuccess
	case []any:
		if len(p) == 0 {
			return false
		}
		_, ok := p[0].(map[string]any)
		return ok
	}
	return false
}

// isUserEcho reports whether the assistant content merely repeats the
// user's message.
func isUserEcho(content, userText string) bool {
	content = strings.TrimSpace(content)
	userText = strings.TrimSpace(userText)
	if content == "" || userText == "" {
		return false
	}
	if strings.EqualFold(content, userText) {
		return true
	}
	if len(content) > 10 && strings.Contains(strings.ToLower(content), strings.ToLower(userText)) {
		// Mostly the user's own words with little added.
		return float64(len(userText))/float64(len(content)) > 0.8
	}
	return false
}
