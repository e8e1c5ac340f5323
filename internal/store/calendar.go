package store

import (
	"sort"
	"strings"

	"github.com/mkrab/famulus/internal/textutil"
)

// Event is a calendar entry. Start and End are ISO datetimes with End >=
// Start, validated by the calendar tool before writes.
type Event struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Notes     string `json:"notes,omitempty"`
	Location  string `json:"location,omitempty"`
	Link      string `json:"link,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// EventDoc is the on-disk shape of the calendar store.
type EventDoc struct {
	Events []Event `json:"events"`
}

// EventStore persists calendar events to a single JSON file.
type EventStore struct {
	path string
}

func NewEventStore(path string) *EventStore {
	return &EventStore{path: path}
}

func (s *EventStore) Path() string { return s.path }

func (s *EventStore) Load() (EventDoc, error) {
	var doc EventDoc
	if _, err := ReadFile(s.path, &doc); err != nil {
		return EventDoc{}, err
	}
	if doc.Events == nil {
		doc.Events = []Event{}
	}
	return doc, nil
}

func (s *EventStore) Save(doc EventDoc) error {
	return WriteFile(s.path, doc)
}

// SortEvents orders events ascending by start time.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})
}

// FindEvents returns events matching any keyword in title, notes or
// location, ranked by match count descending, then by start time.
func FindEvents(doc EventDoc, keywords []string) []Event {
	sorted := append([]Event(nil), doc.Events...)
	SortEvents(sorted)

	type scored struct {
		event Event
		score int
	}
	var hits []scored
	for _, e := range sorted {
		text := e.Title + " " + e.Notes + " " + e.Location
		if n := textutil.MatchCount(text, keywords); n > 0 {
			hits = append(hits, scored{e, n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Event, len(hits))
	for i, h := range hits {
		out[i] = h.event
	}
	return out
}

// EventByID finds an event by ID.
func EventByID(doc EventDoc, id string) (int, bool) {
	for i, e := range doc.Events {
		if e.ID == id {
			return i, true
		}
	}
	return 0, false
}

// EventByTitle finds an event by case-insensitive title match.
func EventByTitle(doc EventDoc, title string) (int, bool) {
	for i, e := range doc.Events {
		if strings.EqualFold(e.Title, title) {
			return i, true
		}
	}
	return 0, false
}
