package tools

import (
	"fmt"
	"strings"

	"github.com/mkrab/famulus/internal/news"
	"github.com/mkrab/famulus/internal/store"
)

// FormatResult renders a tool result into the user-facing reply string.
func FormatResult(r Result) string {
	if r.IsError() {
		return formatError(r)
	}

	typ, _ := r["type"].(string)
	action, _ := r["action"].(string)

	switch typ {
	case NameTodo:
		return formatTodo(r, action)
	case NameCalendar:
		return formatCalendar(r, action)
	case NameKitchen:
		return formatKitchen(r, action)
	case NameNotes:
		return formatNotes(r, action)
	case NameWeather:
		return formatWeather(r, action)
	case NameNews:
		return formatNews(r)
	default:
		return "Done."
	}
}

func formatError(r Result) string {
	code := r.ErrorCode()
	message, _ := r["message"].(string)

	switch code {
	case ErrNotFound:
		return "I could not find that. " + message
	case ErrDuplicateTitle:
		return "That title already exists. " + message
	case ErrMissingTitle:
		return "I need a title for that. " + message
	case ErrMissingID:
		return "I need to know which entry you mean. " + message
	case ErrMissingKeywords:
		return "I need something to search for. " + message
	case ErrCityNotFound:
		return "Sorry, I could not find that city."
	default:
		if message != "" {
			return "That did not work: " + message
		}
		return "That did not work (" + code + ")."
	}
}

func formatTodo(r Result, action string) string {
	switch action {
	case "create":
		todo, _ := r["todo"].(store.Todo)
		s := fmt.Sprintf("Added todo '%s'.", todo.Title)
		if todo.Deadline != "" {
			s += fmt.Sprintf(" Due %s.", todo.Deadline)
		}
		return s
	case "update":
		todo, _ := r["todo"].(store.Todo)
		if todo.Status == "completed" {
			return fmt.Sprintf("Marked '%s' as completed.", todo.Title)
		}
		return fmt.Sprintf("Updated todo '%s'.", todo.Title)
	case "delete":
		todo, _ := r["deleted"].(store.Todo)
		return fmt.Sprintf("Deleted todo '%s'.", todo.Title)
	case "find":
		matches, _ := r["matches"].([]store.Todo)
		if len(matches) == 0 {
			return "No matching todos."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d matching todo(s):\n", len(matches))
		for _, t := range matches {
			b.WriteString(todoLine(t))
		}
		return strings.TrimRight(b.String(), "\n")
	default: // list
		todos, _ := r["todos"].([]store.Todo)
		if len(todos) == 0 {
			return "Your todo list is empty."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d todo(s):\n", len(todos))
		for _, t := range todos {
			b.WriteString(todoLine(t))
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

func todoLine(t store.Todo) string {
	line := "- " + t.Title
	if t.Deadline != "" {
		line += " (due " + t.Deadline + ")"
	}
	if t.Status == "completed" {
		line += " [done]"
	}
	return line + "\n"
}

func formatCalendar(r Result, action string) string {
	switch action {
	case "create":
		event, _ := r["event"].(store.Event)
		return fmt.Sprintf("Added event '%s' starting %s.", event.Title, event.Start)
	case "update":
		event, _ := r["event"].(store.Event)
		return fmt.Sprintf("Updated event '%s'.", event.Title)
	case "delete":
		event, _ := r["deleted"].(store.Event)
		return fmt.Sprintf("Deleted event '%s'.", event.Title)
	case "find":
		matches, _ := r["matches"].([]store.Event)
		if len(matches) == 0 {
			return "No matching events."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d matching event(s):\n", len(matches))
		for _, e := range matches {
			fmt.Fprintf(&b, "- %s at %s\n", e.Title, e.Start)
		}
		return strings.TrimRight(b.String(), "\n")
	default: // list
		events, _ := r["events"].([]store.Event)
		if len(events) == 0 {
			return "Your calendar is empty."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d event(s):\n", len(events))
		for _, e := range events {
			fmt.Fprintf(&b, "- %s at %s\n", e.Title, e.Start)
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

func formatKitchen(r Result, action string) string {
	switch action {
	case "create":
		tip, _ := r["tip"].(store.Tip)
		return fmt.Sprintf("Saved kitchen tip '%s'.", tip.Title)
	case "update":
		tip, _ := r["tip"].(store.Tip)
		return fmt.Sprintf("Updated kitchen tip '%s'.", tip.Title)
	case "delete":
		tip, _ := r["deleted"].(store.Tip)
		return fmt.Sprintf("Deleted kitchen tip '%s'.", tip.Title)
	case "find":
		matches, _ := r["matches"].([]store.Tip)
		if len(matches) == 0 {
			return "No matching kitchen tips."
		}
		var b strings.Builder
		for _, t := range matches {
			fmt.Fprintf(&b, "%s: %s\n", t.Title, t.Content)
		}
		return strings.TrimRight(b.String(), "\n")
	default: // list
		tips, _ := r["tips"].([]store.Tip)
		if len(tips) == 0 {
			return "No kitchen tips saved yet."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d kitchen tip(s):\n", len(tips))
		for _, t := range tips {
			fmt.Fprintf(&b, "- %s\n", t.Title)
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

func formatNotes(r Result, action string) string {
	switch action {
	case "create":
		sec, _ := r["section"].(store.Section)
		return fmt.Sprintf("Added guide section '%s'.", sec.Title)
	case "update":
		sec, _ := r["section"].(store.Section)
		return fmt.Sprintf("Updated guide section '%s'.", sec.Title)
	case "delete":
		sec, _ := r["deleted"].(store.Section)
		return fmt.Sprintf("Deleted guide section '%s'.", sec.Title)
	case "find":
		matches, _ := r["matches"].([]store.Section)
		if len(matches) == 0 {
			return "Nothing in the guide matches that."
		}
		var b strings.Builder
		for _, sec := range matches {
			fmt.Fprintf(&b, "%s:\n%s\n", sec.Title, sec.Content)
		}
		return strings.TrimRight(b.String(), "\n")
	default: // list
		sections, _ := r["sections"].([]store.Section)
		if len(sections) == 0 {
			return "The guide is empty."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Guide sections (%d):\n", len(sections))
		for _, sec := range sections {
			fmt.Fprintf(&b, "- %s\n", sec.Title)
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

func formatWeather(r Result, action string) string {
	city, _ := r["city"].(string)
	temp, _ := r["temperature"].(float64)
	condition, _ := r["condition"].(string)

	if action == "forecast" {
		hour, _ := r["hour"].(int)
		dayPhrase, _ := r["day_phrase"].(string)
		when := dayPhrase
		if when == "" {
			date, _ := r["date"].(string)
			when = "on " + date
		}
		return fmt.Sprintf("Weather in %s %s at %02d:00: %.0f°C, %s.", city, when, hour, temp, condition)
	}

	wind, _ := r["wind_speed"].(float64)
	return fmt.Sprintf("Weather in %s right now: %.0f°C, %s, wind %.0f km/h.", city, temp, condition, wind)
}

func formatNews(r Result) string {
	stories, _ := r["stories"].([]news.Story)
	topic, _ := r["topic"].(string)
	if len(stories) == 0 {
		return fmt.Sprintf("No headlines found for %q right now.", topic)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Headlines on %s:\n", topic)
	for _, s := range stories {
		fmt.Fprintf(&b, "- %s (%s)\n", s.Title, s.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
