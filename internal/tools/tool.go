// Package tools implements the assistant's tool set behind one uniform
// contract: every tool is a value with Run(payload, dryRun) returning a
// result mapping. Errors are codes inside the result, never Go errors;
// only store corruption aborts a turn.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool names as registered and allow-listed.
const (
	NameTodo     = "todo_list"
	NameCalendar = "calendar"
	NameKitchen  = "kitchen_tips"
	NameNotes    = "app_guide"
	NameWeather  = "weather"
	NameNews     = "news"
)

// Deterministic error codes returned inside results.
const (
	ErrMissingTitle      = "missing_title"
	ErrMissingID         = "missing_id"
	ErrMissingDeadline   = "missing_deadline"
	ErrMissingKeywords   = "missing_keywords"
	ErrMissingUpdates    = "missing_updates"
	ErrMissingCity       = "missing_city"
	ErrInvalidStatus     = "invalid_status"
	ErrInvalidDatetime   = "invalid_datetime"
	ErrDuplicateTitle    = "duplicate_title"
	ErrNotFound          = "not_found"
	ErrUnsupportedAction = "unsupported_action"
	ErrCityNotFound      = "city_not_found"
	ErrStoreFailure      = "store_failure"
)

// Payload is a tool action payload: a string "action" plus action-specific
// fields.
type Payload map[string]any

// Result is the uniform tool output: at least type, domain and action,
// plus either success fields or error + message.
type Result map[string]any

// IsError reports whether r carries an error code.
func (r Result) IsError() bool {
	_, ok := r["error"]
	return ok
}

// ErrorCode returns the error code, or "" for success results.
func (r Result) ErrorCode() string {
	code, _ := r["error"].(string)
	return code
}

// Tool is the single capability every tool implements. dryRun runs the
// full decision path and produces the success result shape without
// touching any store file.
type Tool interface {
	Name() string
	Run(ctx context.Context, payload Payload, dryRun bool) Result
}

// Registry dispatches tool names to tools. Unknown names are rejected
// with an error so the orchestrator can distinguish a bad route from a
// failing tool.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its own name. Re-registering replaces.
func (r *Registry) Register(t Tool) {
	name := strings.ToLower(t.Name())
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[strings.ToLower(name)]
	return t, ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Run dispatches to the named tool.
func (r *Registry) Run(ctx context.Context, name string, payload Payload, dryRun bool) (Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t.Run(ctx, payload, dryRun), nil
}

// --- payload and result helpers shared by the tools ---

// actionAliases maps accepted action spellings to the canonical verb.
var actionAliases = map[string]string{
	"add":      "create",
	"new":      "create",
	"insert":   "create",
	"search":   "find",
	"get":      "find",
	"lookup":   "find",
	"show":     "list",
	"all":      "list",
	"edit":     "update",
	"modify":   "update",
	"complete": "update",
	"remove":   "delete",
}

// canonicalAction lowercases and de-aliases the payload action; an empty
// action defaults to list.
func canonicalAction(p Payload) string {
	action := strings.ToLower(strings.TrimSpace(stringField(p, "action")))
	if action == "" {
		return "list"
	}
	if canon, ok := actionAliases[action]; ok {
		return canon
	}
	return action
}

func stringField(p Payload, key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func intField(p Payload, key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func stringListField(p Payload, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// keywordsFromPayload pulls the search terms for find actions from the
// keywords, query or topic fields.
func keywordsFromPayload(p Payload) []string {
	if kws := stringListField(p, "keywords"); len(kws) > 0 {
		return kws
	}
	for _, key := range []string{"query", "topic", "title"} {
		if s := stringField(p, key); s != "" {
			return strings.Fields(strings.ToLower(s))
		}
	}
	return nil
}

func baseResult(typ, domain, action string) Result {
	return Result{"type": typ, "domain": domain, "action": action}
}

func errResult(typ, domain, action, code, message string) Result {
	r := baseResult(typ, domain, action)
	r["error"] = code
	r["message"] = message
	return r
}

// sortedCopy returns a sorted, deduplicated, lowercased copy of keywords.
func sortedCopy(keywords []string) []string {
	set := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			set[kw] = true
		}
	}
	out := make([]string, 0, len(set))
	for kw := range set {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}
