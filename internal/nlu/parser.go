// Package nlu turns a free-form user message into a tool invocation:
// a rule-based parser, a statistical classifier over a serialized TF-IDF
// artifact, and the stage composer that sequences them.
package nlu

import (
	"regexp"
	"strings"
	"time"

	"github.com/mkrab/famulus/internal/textutil"
	"github.com/mkrab/famulus/internal/tools"
)

// Invocation sources recorded on every turn.
const (
	SourceParser     = "parser"
	SourceClassifier = "classifier"
	SourceLLM        = "llm"
	SourceFallback   = "fallback"
)

// FallbackIntent is emitted when no stage produced a usable intent.
const FallbackIntent = "nlu_fallback"

// Parse confidence conventions: clean matches with an extracted entity
// score high; a certain intent with no entities scores low enough that
// the probe layer or router gets a say.
const (
	confClean      = 0.95
	confWithEntity = 0.90
	confIntentOnly = 0.55
)

// Result is the outcome of NLU for one message.
type Result struct {
	Intent               string
	Tool                 string
	Payload              tools.Payload
	Confidence           float64
	Source               string
	ClassifierIntent     string
	ClassifierConfidence float64
}

// ParseCommand runs the deterministic per-domain parsers in fixed order:
// weather, news, todo, kitchen, calendar, notes. The first keyword gate
// that matches wins; the fixed order is part of the contract.
func ParseCommand(message string, now time.Time) (Result, bool) {
	type domainParser struct {
		gate  func(string) bool
		parse func(string, time.Time) Result
	}
	parsers := []domainParser{
		{weatherGate, parseWeather},
		{newsGate, parseNews},
		{todoGate, parseTodo},
		{kitchenGate, parseKitchen},
		{calendarGate, parseCalendar},
		{notesGate, parseNotes},
	}
	for _, p := range parsers {
		if p.gate(message) {
			return p.parse(message, now), true
		}
	}
	return Result{}, false
}

// --- keyword gates ---

func weatherGate(m string) bool {
	return textutil.ContainsAny(m, "weather", "forecast", "temperature",
		"vejr", "vejret", "vejrudsigt", "temperatur")
}

func newsGate(m string) bool {
	return textutil.ContainsAny(m, "news", "headline", "headlines",
		"nyhed", "nyheder", "nyhederne", "overskrifter")
}

func todoGate(m string) bool {
	return textutil.ContainsAny(m, "todo", "todos", "task", "tasks",
		"huskeliste", "huskelisten", "opgave", "opgaver")
}

func kitchenGate(m string) bool {
	return textutil.ContainsAny(m, "kitchen", "recipe", "cooking",
		"køkken", "køkkenet", "opskrift", "madlavning") ||
		(textutil.ContainsAny(m, "tip", "tips") && textutil.ContainsAny(m, "cook", "bake", "food", "mad"))
}

func calendarGate(m string) bool {
	return textutil.ContainsAny(m, "calendar", "meeting", "appointment", "event", "events",
		"kalender", "kalenderen", "møde", "aftale", "aftaler", "begivenhed")
}

func notesGate(m string) bool {
	return textutil.ContainsAny(m, "guide", "guiden", "note", "notes", "section", "manual", "håndbog")
}

// --- action inference ---

func inferAction(m string) string {
	switch {
	case textutil.ContainsAny(m, "add", "create", "new", "save", "remember",
		"tilføj", "opret", "gem", "husk"):
		return "create"
	case textutil.ContainsAny(m, "complete", "completed", "done", "finish", "finished",
		"færdig", "fuldført", "afslut"):
		return "complete"
	case textutil.ContainsAny(m, "delete", "remove", "drop", "slet", "fjern"):
		return "delete"
	case textutil.ContainsAny(m, "update", "change", "rename", "move", "postpone",
		"opdater", "ændr", "omdøb", "udskyd", "flyt"):
		return "update"
	case textutil.ContainsAny(m, "list", "show", "all", "everything", "vis", "alle"):
		return "list"
	case textutil.ContainsAny(m, "find", "search", "about", "say", "søg", "om"):
		return "find"
	default:
		return ""
	}
}

// taskTitleRe catches "the task to Buy milk" style references where the
// title is not quoted.
var taskTitleRe = regexp.MustCompile(`(?i)\b(?:task|todo|opgaven?)\s+(?:to\s+|called\s+|named\s+)?(.+?)[.!?]?$`)

// BuildTodoPayload derives a todo payload from the message. Shared by the
// deterministic parser and the classifier's heuristic payload builder.
func BuildTodoPayload(m string, now time.Time) tools.Payload {
	p := tools.Payload{}
	action := inferAction(m)
	switch action {
	case "complete":
		p["action"] = "update"
		p["status"] = "completed"
	case "":
		p["action"] = "list"
	default:
		p["action"] = action
	}

	title, hasTitle := textutil.ExtractTitle(m)
	if !hasTitle && p["action"] != "list" {
		if match := taskTitleRe.FindStringSubmatch(m); match != nil {
			candidate := strings.TrimSpace(match[1])
			// "deadline ..." and "notes ..." clauses are not part of the title.
			for _, stop := range []string{" deadline ", " notes ", " note "} {
				if i := strings.Index(strings.ToLower(candidate), stop); i >= 0 {
					candidate = strings.TrimSpace(candidate[:i])
				}
			}
			if candidate != "" && !strings.EqualFold(candidate, "list") {
				title, hasTitle = candidate, true
			}
		}
	}

	switch p["action"] {
	case "create":
		if hasTitle {
			p["title"] = title
		}
		if deadline, ok := textutil.ParseDate(m, now); ok {
			p["deadline"] = deadline
		}
		if notes := textutil.ExtractNotes(m); len(notes) > 0 {
			p["notes"] = notes
		}
		if textutil.ContainsAny(m, "high", "urgent", "vigtig") {
			p["priority"] = "high"
		} else if textutil.ContainsAny(m, "low", "someday") {
			p["priority"] = "low"
		}
	case "update", "delete":
		if hasTitle {
			p["target_title"] = title
		}
		if deadline, ok := textutil.ParseDate(m, now); ok && p["action"] == "update" {
			p["deadline"] = deadline
		}
	case "find":
		if hasTitle {
			p["query"] = title
		} else {
			p["keywords"] = textutil.Keywords(m)
		}
	}
	return p
}

func parseTodo(m string, now time.Time) Result {
	p := BuildTodoPayload(m, now)
	conf := confIntentOnly
	if _, ok := p["title"]; ok {
		conf = confClean
	} else if _, ok := p["target_title"]; ok {
		conf = confWithEntity
	} else if p["action"] == "list" {
		conf = confWithEntity
	}
	return Result{
		Intent:     tools.NameTodo,
		Tool:       tools.NameTodo,
		Payload:    p,
		Confidence: conf,
		Source:     SourceParser,
	}
}

// BuildWeatherPayload derives a weather payload: city, optional date and
// hour hint, and the original day phrase for the formatter.
func BuildWeatherPayload(m string, now time.Time) tools.Payload {
	p := tools.Payload{"action": "current"}
	if city, ok := textutil.ExtractCity(m); ok {
		p["city"] = city
	}
	date, hasDate := textutil.ParseDate(m, now)
	tr, hasTime := textutil.ParseTimeRange(m)
	if hasDate {
		p["action"] = "forecast"
		p["date"] = date
		if hasTime {
			p["hour"] = tr.StartHour
		} else {
			p["hour"] = 12
		}
		p["day_phrase"] = dayPhrase(m)
	}
	return p
}

func dayPhrase(m string) string {
	low := strings.ToLower(m)
	for _, phrase := range []string{"day after tomorrow", "i overmorgen", "tomorrow", "i morgen", "today", "i dag"} {
		if strings.Contains(low, phrase) {
			return phrase
		}
	}
	for _, tok := range textutil.Tokenize(low) {
		switch tok {
		case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
			"mandag", "tirsdag", "onsdag", "torsdag", "fredag", "lørdag", "søndag":
			return "on " + strings.ToUpper(tok[:1]) + tok[1:]
		}
	}
	return ""
}

func parseWeather(m string, now time.Time) Result {
	p := BuildWeatherPayload(m, now)
	conf := confIntentOnly
	if _, ok := p["city"]; ok {
		conf = confClean
	}
	return Result{
		Intent:     tools.NameWeather,
		Tool:       tools.NameWeather,
		Payload:    p,
		Confidence: conf,
		Source:     SourceParser,
	}
}

var newsTopicRe = regexp.MustCompile(`(?i)\b(?:on|about|regarding|om)\s+(.+?)[.!?]?$`)

// BuildNewsPayload derives a news payload: topic, language hint and limit.
func BuildNewsPayload(m string, _ time.Time) tools.Payload {
	p := tools.Payload{"action": "find", "language": textutil.ExtractLanguage(m)}
	if match := newsTopicRe.FindStringSubmatch(m); match != nil {
		p["topic"] = strings.TrimSpace(match[1])
	} else if q := textutil.ExtractQuoted(m); len(q) > 0 {
		p["topic"] = q[0]
	}
	return p
}

func parseNews(m string, now time.Time) Result {
	p := BuildNewsPayload(m, now)
	conf := confIntentOnly
	if _, ok := p["topic"]; ok {
		conf = confWithEntity
	}
	return Result{
		Intent:     tools.NameNews,
		Tool:       tools.NameNews,
		Payload:    p,
		Confidence: conf,
		Source:     SourceParser,
	}
}

// BuildKitchenPayload derives a kitchen-tip payload.
func BuildKitchenPayload(m string, _ time.Time) tools.Payload {
	p := tools.Payload{}
	action := inferAction(m)
	switch action {
	case "create":
		p["action"] = "create"
		if title, ok := textutil.ExtractTitle(m); ok {
			p["title"] = title
		}
		if notes := textutil.ExtractNotes(m); len(notes) > 0 {
			p["content"] = strings.Join(notes, "\n")
		}
		if tags := textutil.ExtractTags(m); len(tags) > 0 {
			p["keywords"] = tags
		}
	case "delete", "update":
		p["action"] = action
		if title, ok := textutil.ExtractTitle(m); ok {
			p["target_title"] = title
		}
	case "list":
		p["action"] = "list"
	default:
		p["action"] = "find"
		p["keywords"] = textutil.Keywords(m)
	}
	return p
}

func parseKitchen(m string, now time.Time) Result {
	p := BuildKitchenPayload(m, now)
	conf := confIntentOnly
	if _, ok := p["title"]; ok {
		conf = confClean
	} else if _, ok := p["keywords"]; ok {
		conf = confWithEntity
	} else if p["action"] == "list" {
		conf = confWithEntity
	}
	return Result{
		Intent:     tools.NameKitchen,
		Tool:       tools.NameKitchen,
		Payload:    p,
		Confidence: conf,
		Source:     SourceParser,
	}
}

// BuildCalendarPayload derives a calendar payload with a date plus clock
// range resolved from the message.
func BuildCalendarPayload(m string, now time.Time) tools.Payload {
	p := tools.Payload{}
	action := inferAction(m)
	if textutil.ContainsAny(m, "book", "schedule", "planlæg") {
		action = "create"
	}
	switch action {
	case "create":
		p["action"] = "create"
		if title, ok := textutil.ExtractTitle(m); ok {
			p["title"] = title
		}
		if date, ok := textutil.ParseDate(m, now); ok {
			p["date"] = date
		}
		if tr, ok := textutil.ParseTimeRange(m); ok {
			p["start_time"] = tr.Clock()
			p["end_time"] = clockOf(tr.EndHour, tr.EndMin)
		}
	case "delete", "update", "complete":
		if action == "complete" {
			action = "update"
		}
		p["action"] = action
		if title, ok := textutil.ExtractTitle(m); ok {
			p["target_title"] = title
		}
		if date, ok := textutil.ParseDate(m, now); ok && action == "update" {
			p["start"] = date
		}
	case "list":
		p["action"] = "list"
	default:
		if kws := textutil.Keywords(m); len(kws) > 0 && action == "find" {
			p["action"] = "find"
			p["keywords"] = kws
		} else {
			p["action"] = "list"
		}
	}
	return p
}

func clockOf(h, min int) string {
	return textutil.TimeRange{StartHour: h, StartMin: min}.Clock()
}

func parseCalendar(m string, now time.Time) Result {
	p := BuildCalendarPayload(m, now)
	conf := confIntentOnly
	if _, ok := p["title"]; ok {
		conf = confClean
	} else if _, ok := p["target_title"]; ok {
		conf = confWithEntity
	} else if p["action"] == "list" {
		conf = confWithEntity
	}
	return Result{
		Intent:     tools.NameCalendar,
		Tool:       tools.NameCalendar,
		Payload:    p,
		Confidence: conf,
		Source:     SourceParser,
	}
}

// BuildNotesPayload derives a knowledge-base payload.
func BuildNotesPayload(m string, _ time.Time) tools.Payload {
	p := tools.Payload{}
	action := inferAction(m)
	switch action {
	case "create":
		p["action"] = "create"
		if title, ok := textutil.ExtractTitle(m); ok {
			p["title"] = title
		}
		if notes := textutil.ExtractNotes(m); len(notes) > 0 {
			p["content"] = strings.Join(notes, "\n")
		}
		if textutil.ContainsAny(m, "top", "first", "øverst") {
			p["position"] = "top"
		}
	case "delete", "update":
		p["action"] = action
		if title, ok := textutil.ExtractTitle(m); ok {
			p["target_title"] = title
		}
	case "list":
		p["action"] = "list"
	default:
		p["action"] = "find"
		p["keywords"] = textutil.Keywords(m)
	}
	return p
}

func parseNotes(m string, now time.Time) Result {
	p := BuildNotesPayload(m, now)
	conf := confIntentOnly
	if _, ok := p["title"]; ok {
		conf = confClean
	} else if _, ok := p["keywords"]; ok {
		conf = confWithEntity
	} else if p["action"] == "list" {
		conf = confWithEntity
	}
	return Result{
		Intent:     tools.NameNotes,
		Tool:       tools.NameNotes,
		Payload:    p,
		Confidence: conf,
		Source:     SourceParser,
	}
}

// BuildPayloadFor synthesizes a payload for an intent resolved by the
// classifier or suggested by the router, reusing the per-domain builders.
func BuildPayloadFor(tool, message string, now time.Time) tools.Payload {
	switch tool {
	case tools.NameTodo:
		return BuildTodoPayload(message, now)
	case tools.NameCalendar:
		return BuildCalendarPayload(message, now)
	case tools.NameKitchen:
		return BuildKitchenPayload(message, now)
	case tools.NameNotes:
		return BuildNotesPayload(message, now)
	case tools.NameWeather:
		return BuildWeatherPayload(message, now)
	case tools.NameNews:
		return BuildNewsPayload(message, now)
	default:
		return tools.Payload{"action": "list"}
	}
}
