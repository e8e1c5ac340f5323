// Package router wraps the remote LLM used when the local NLU stages
// cannot resolve a message. Unavailability (no API key, network failure)
// is a value: every operation degrades to a descriptive result the
// orchestrator treats as fallback text.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Decision kinds returned by Route.
const (
	DecisionTool = "tool"
	DecisionText = "text"
	DecisionNone = "none"
)

// AnswerPrefix marks replies that came from the remote model rather than
// a local tool.
const AnswerPrefix = "From ChatGPT: "

const unavailableMessage = "The language model is not available right now, so I could not work that one out."

// Decision is the router's verdict for one message.
type Decision struct {
	Type    string         `json:"type"`
	Name    string         `json:"name,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Content string         `json:"content,omitempty"`
}

// ChatCompleter is the slice of the OpenAI client the router uses.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Router routes messages through a remote chat model.
type Router struct {
	client ChatCompleter
	model  string
	tools  []string
}

// New creates a router for the given model, advertising toolNames in the
// routing prompt. A nil client yields a permanently unavailable router.
func New(client ChatCompleter, model string, toolNames []string) *Router {
	return &Router{client: client, model: model, tools: toolNames}
}

// NewFromAPIKey builds a router over the real OpenAI client; an empty key
// yields an unavailable router.
func NewFromAPIKey(apiKey, model string, toolNames []string) *Router {
	if apiKey == "" {
		return New(nil, model, toolNames)
	}
	return New(openai.NewClient(apiKey), model, toolNames)
}

// Available reports whether a remote model is configured.
func (r *Router) Available() bool {
	return r.client != nil && r.model != ""
}

const routePromptTemplate = `You route messages for a home assistant.
Available tools: %s.
Reply with exactly one JSON object, nothing else:
{"type":"tool","name":"<tool>","payload":{"action":"<action>", ...}}
or {"type":"text","content":"<answer>"}
or {"type":"none"}`

// Route asks the model for a tool decision. Malformed model output
// degrades to a text decision carrying the raw reply.
func (r *Router) Route(ctx context.Context, message string) Decision {
	raw, err := r.chat(ctx, fmt.Sprintf(routePromptTemplate, strings.Join(r.tools, ", ")), message)
	if err != nil {
		slog.Warn("router: route call failed", "error", err)
		return Decision{Type: DecisionText, Content: unavailableMessage}
	}

	var d Decision
	if err := json.Unmarshal([]byte(extractJSON(raw)), &d); err != nil || d.Type == "" {
		return Decision{Type: DecisionText, Content: strings.TrimSpace(raw)}
	}
	switch d.Type {
	case DecisionTool, DecisionText, DecisionNone:
		return d
	default:
		return Decision{Type: DecisionText, Content: strings.TrimSpace(raw)}
	}
}

// SuggestTool asks the model which tool, if any, fits the message. Used
// when NLU fell back but the orchestrator still wants a suggestion.
func (r *Router) SuggestTool(ctx context.Context, message string) (string, bool) {
	prompt := fmt.Sprintf("Name the single best tool for this message, out of: %s. Reply with only the tool name, or NONE.", strings.Join(r.tools, ", "))
	raw, err := r.chat(ctx, prompt, message)
	if err != nil {
		slog.Warn("router: suggest call failed", "error", err)
		return "", false
	}
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, tool := range r.tools {
		if name == strings.ToLower(tool) {
			return tool, true
		}
	}
	return "", false
}

// GeneralAnswer produces the fallback reply, prefixed so the user can
// tell a remote answer from a tool result.
func (r *Router) GeneralAnswer(ctx context.Context, message string) string {
	raw, err := r.chat(ctx, "You are a helpful home assistant. Answer briefly.", message)
	if err != nil {
		slog.Warn("router: general answer failed", "error", err)
		return unavailableMessage
	}
	return AnswerPrefix + strings.TrimSpace(raw)
}

func (r *Router) chat(ctx context.Context, system, user string) (string, error) {
	if !r.Available() {
		return "", fmt.Errorf("no remote model configured")
	}
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON trims prose or code fences around the first JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
