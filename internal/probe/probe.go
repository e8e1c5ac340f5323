// Package probe runs read-only keyword searches over the CRUD stores so
// the orchestrator can turn a vague create- or LLM-routed request into a
// find or list instead of a blind mutation. Probes never write.
package probe

import (
	"github.com/mkrab/famulus/internal/store"
	"github.com/mkrab/famulus/internal/textutil"
	"github.com/mkrab/famulus/internal/tools"
)

// Decisions a probe can reach.
const (
	DecideFind   = "find"
	DecideList   = "list"
	DecideAnswer = "answer"
)

const maxMatches = 3

// Decision is the probe outcome: find with the top matches, list, or
// answer (escalate to the router).
type Decision struct {
	Action  string
	Matches []string
	Count   int
}

// Prober owns read handles to the four CRUD stores.
type Prober struct {
	todos    *store.TodoStore
	events   *store.EventStore
	tips     *store.TipStore
	sections *store.SectionStore
}

func New(todos *store.TodoStore, events *store.EventStore, tips *store.TipStore, sections *store.SectionStore) *Prober {
	return &Prober{todos: todos, events: events, tips: tips, sections: sections}
}

// Probe searches the store behind tool with keywords from the payload or,
// failing that, the message. ok is false for non-CRUD tools.
func (p *Prober) Probe(tool, message string, payload tools.Payload) (Decision, bool) {
	keywords := probeKeywords(message, payload)
	if listLike(message) {
		return Decision{Action: DecideList}, isCRUD(tool)
	}

	var titles []string
	switch tool {
	case tools.NameTodo:
		if doc, err := p.todos.Load(); err == nil {
			for _, t := range store.FindTodos(doc, keywords) {
				titles = append(titles, t.Title)
			}
		}
	case tools.NameCalendar:
		if doc, err := p.events.Load(); err == nil {
			for _, e := range store.FindEvents(doc, keywords) {
				titles = append(titles, e.Title)
			}
		}
	case tools.NameKitchen:
		if doc, err := p.tips.Load(); err == nil {
			for _, t := range store.FindTips(doc, keywords) {
				titles = append(titles, t.Title)
			}
		}
	case tools.NameNotes:
		if doc, err := p.sections.Load(); err == nil {
			for _, s := range store.FindSections(doc, keywords) {
				titles = append(titles, s.Title)
			}
		}
	default:
		return Decision{}, false
	}

	if len(titles) > 0 {
		count := len(titles)
		if len(titles) > maxMatches {
			titles = titles[:maxMatches]
		}
		return Decision{Action: DecideFind, Matches: titles, Count: count}, true
	}
	return Decision{Action: DecideAnswer}, true
}

func isCRUD(tool string) bool {
	switch tool {
	case tools.NameTodo, tools.NameCalendar, tools.NameKitchen, tools.NameNotes:
		return true
	}
	return false
}

func probeKeywords(message string, payload tools.Payload) []string {
	if kws, ok := payload["keywords"].([]string); ok && len(kws) > 0 {
		return kws
	}
	if title, ok := payload["title"].(string); ok && title != "" {
		return textutil.Keywords(title)
	}
	return textutil.Keywords(message)
}

func listLike(message string) bool {
	return textutil.ContainsAny(message, "list", "all", "everything", "show", "alle", "vis")
}
