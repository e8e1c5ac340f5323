package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkrab/famulus/internal/store"
)

// datetimeLayouts are the accepted spellings for event start/end values,
// tried in order. Date-only values land at midnight.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDatetime(s string) (time.Time, string, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, t.Format("2006-01-02T15:04"), true
		}
	}
	return time.Time{}, "", false
}

// CalendarTool manages the calendar event store.
type CalendarTool struct {
	store *store.EventStore
}

func NewCalendarTool(s *store.EventStore) *CalendarTool {
	return &CalendarTool{store: s}
}

func (t *CalendarTool) Name() string { return NameCalendar }

func (t *CalendarTool) Run(ctx context.Context, p Payload, dryRun bool) Result {
	action := canonicalAction(p)

	doc, err := t.store.Load()
	if err != nil {
		return errResult(NameCalendar, "calendar", action, ErrStoreFailure, err.Error())
	}

	switch action {
	case "list":
		events := append([]store.Event(nil), doc.Events...)
		store.SortEvents(events)
		r := baseResult(NameCalendar, "calendar", action)
		r["events"] = events
		r["count"] = len(events)
		return r

	case "find":
		keywords := keywordsFromPayload(p)
		if len(keywords) == 0 {
			return errResult(NameCalendar, "calendar", action, ErrMissingKeywords, "find requires keywords")
		}
		matches := store.FindEvents(doc, keywords)
		r := baseResult(NameCalendar, "calendar", action)
		r["matches"] = matches
		r["count"] = len(matches)
		return r

	case "create":
		return t.create(doc, p, dryRun)

	case "update":
		return t.update(doc, p, dryRun)

	case "delete":
		return t.delete(doc, p, dryRun)

	default:
		return errResult(NameCalendar, "calendar", action, ErrUnsupportedAction, fmt.Sprintf("unsupported action %q", action))
	}
}

// eventTimes resolves start/end from the payload: explicit start/end
// datetimes, or a date plus start_time/end_time clock values.
func eventTimes(p Payload) (start, end string, errCode, errMsg string) {
	rawStart := stringField(p, "start")
	rawEnd := stringField(p, "end")

	if rawStart == "" {
		date := stringField(p, "date")
		if date == "" {
			return "", "", ErrInvalidDatetime, "create requires a start datetime or a date"
		}
		startClock := stringField(p, "start_time")
		if startClock == "" {
			startClock = "09:00"
		}
		endClock := stringField(p, "end_time")
		rawStart = date + "T" + startClock
		if endClock != "" {
			rawEnd = date + "T" + endClock
		}
	}

	startT, startISO, ok := parseDatetime(rawStart)
	if !ok {
		return "", "", ErrInvalidDatetime, fmt.Sprintf("start %q is not a datetime", rawStart)
	}
	if rawEnd == "" {
		return startISO, startT.Add(time.Hour).Format("2006-01-02T15:04"), "", ""
	}
	endT, endISO, ok := parseDatetime(rawEnd)
	if !ok {
		return "", "", ErrInvalidDatetime, fmt.Sprintf("end %q is not a datetime", rawEnd)
	}
	if endT.Before(startT) {
		return "", "", ErrInvalidDatetime, "end is before start"
	}
	return startISO, endISO, "", ""
}

func (t *CalendarTool) create(doc store.EventDoc, p Payload, dryRun bool) Result {
	title := strings.TrimSpace(stringField(p, "title"))
	if title == "" {
		return errResult(NameCalendar, "calendar", "create", ErrMissingTitle, "create requires a title")
	}
	start, end, code, msg := eventTimes(p)
	if code != "" {
		return errResult(NameCalendar, "calendar", "create", code, msg)
	}

	now := store.Timestamp()
	event := store.Event{
		ID:        uuid.NewString(),
		Title:     title,
		Start:     start,
		End:       end,
		Notes:     strings.Join(stringListField(p, "notes"), "\n"),
		Location:  stringField(p, "location"),
		Link:      stringField(p, "link"),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameCalendar, "calendar", "create", ErrStoreFailure, err.Error())
		}
		fresh.Events = append(fresh.Events, event)
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameCalendar, "calendar", "create", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameCalendar, "calendar", "create")
	r["event"] = event
	return r
}

func (t *CalendarTool) update(doc store.EventDoc, p Payload, dryRun bool) Result {
	idx, res := t.locate(doc, p, "update")
	if res != nil {
		return res
	}
	event := doc.Events[idx]

	changed := false
	if rawStart := stringField(p, "start"); rawStart != "" {
		startT, startISO, ok := parseDatetime(rawStart)
		if !ok {
			return errResult(NameCalendar, "calendar", "update", ErrInvalidDatetime, fmt.Sprintf("start %q is not a datetime", rawStart))
		}
		event.Start = startISO
		if endT, _, ok := parseDatetime(event.End); !ok || endT.Before(startT) {
			event.End = startT.Add(time.Hour).Format("2006-01-02T15:04")
		}
		changed = true
	}
	if rawEnd := stringField(p, "end"); rawEnd != "" {
		endT, endISO, ok := parseDatetime(rawEnd)
		if !ok {
			return errResult(NameCalendar, "calendar", "update", ErrInvalidDatetime, fmt.Sprintf("end %q is not a datetime", rawEnd))
		}
		if startT, _, ok := parseDatetime(event.Start); ok && endT.Before(startT) {
			return errResult(NameCalendar, "calendar", "update", ErrInvalidDatetime, "end is before start")
		}
		event.End = endISO
		changed = true
	}
	if newTitle := strings.TrimSpace(stringField(p, "new_title")); newTitle != "" {
		event.Title = newTitle
		changed = true
	}
	if notes := stringListField(p, "notes"); len(notes) > 0 {
		event.Notes = strings.Join(notes, "\n")
		changed = true
	}
	if location := stringField(p, "location"); location != "" {
		event.Location = location
		changed = true
	}
	if link := stringField(p, "link"); link != "" {
		event.Link = link
		changed = true
	}
	if !changed {
		return errResult(NameCalendar, "calendar", "update", ErrMissingUpdates, "no recognized update fields in payload")
	}
	event.UpdatedAt = store.Timestamp()

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameCalendar, "calendar", "update", ErrStoreFailure, err.Error())
		}
		i, ok := store.EventByID(fresh, event.ID)
		if !ok {
			return errResult(NameCalendar, "calendar", "update", ErrNotFound, "event disappeared during update")
		}
		fresh.Events[i] = event
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameCalendar, "calendar", "update", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameCalendar, "calendar", "update")
	r["event"] = event
	return r
}

func (t *CalendarTool) delete(doc store.EventDoc, p Payload, dryRun bool) Result {
	idx, res := t.locate(doc, p, "delete")
	if res != nil {
		return res
	}
	deleted := doc.Events[idx]

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameCalendar, "calendar", "delete", ErrStoreFailure, err.Error())
		}
		if i, ok := store.EventByID(fresh, deleted.ID); ok {
			fresh.Events = append(fresh.Events[:i], fresh.Events[i+1:]...)
			if err := t.store.Save(fresh); err != nil {
				return errResult(NameCalendar, "calendar", "delete", ErrStoreFailure, err.Error())
			}
		}
	}

	r := baseResult(NameCalendar, "calendar", "delete")
	r["deleted"] = deleted
	return r
}

func (t *CalendarTool) locate(doc store.EventDoc, p Payload, action string) (int, Result) {
	if id := stringField(p, "id"); id != "" {
		if i, ok := store.EventByID(doc, id); ok {
			return i, nil
		}
		return 0, errResult(NameCalendar, "calendar", action, ErrNotFound, fmt.Sprintf("no event with id %q", id))
	}
	title := stringField(p, "target_title")
	if title == "" {
		title = stringField(p, "title")
	}
	if title == "" {
		return 0, errResult(NameCalendar, "calendar", action, ErrMissingID, "payload needs an id or a title")
	}
	if i, ok := store.EventByTitle(doc, title); ok {
		return i, nil
	}
	return 0, errResult(NameCalendar, "calendar", action, ErrNotFound, fmt.Sprintf("no event titled %q", title))
}
