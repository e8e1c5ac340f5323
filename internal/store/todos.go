package store

import (
	"sort"
	"strings"

	"github.com/mkrab/famulus/internal/textutil"
)

// Todo is a single entry in the todo list.
type Todo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Deadline  string   `json:"deadline,omitempty"`
	Priority  string   `json:"priority,omitempty"`
	Notes     []string `json:"notes,omitempty"`
	Link      string   `json:"link,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// TodoDoc is the on-disk shape of the todo store.
type TodoDoc struct {
	Todos []Todo `json:"todos"`
}

// TodoStore persists todos to a single JSON file.
type TodoStore struct {
	path string
}

func NewTodoStore(path string) *TodoStore {
	return &TodoStore{path: path}
}

func (s *TodoStore) Path() string { return s.path }

// Load reads the store file; a missing file yields the empty default doc.
func (s *TodoStore) Load() (TodoDoc, error) {
	var doc TodoDoc
	if _, err := ReadFile(s.path, &doc); err != nil {
		return TodoDoc{}, err
	}
	if doc.Todos == nil {
		doc.Todos = []Todo{}
	}
	return doc, nil
}

// Save atomically replaces the store file.
func (s *TodoStore) Save(doc TodoDoc) error {
	return WriteFile(s.path, doc)
}

// SortTodos orders entries for listing: entries with a deadline first,
// ascending by date, then the rest by case-insensitive title.
func SortTodos(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		switch {
		case a.Deadline != "" && b.Deadline == "":
			return true
		case a.Deadline == "" && b.Deadline != "":
			return false
		case a.Deadline != b.Deadline:
			return a.Deadline < b.Deadline
		default:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	})
}

// FindTodos returns entries matching any keyword, ranked by match count
// descending, ties broken by the default list ordering.
func FindTodos(doc TodoDoc, keywords []string) []Todo {
	sorted := append([]Todo(nil), doc.Todos...)
	SortTodos(sorted)

	type scored struct {
		todo  Todo
		score int
	}
	var hits []scored
	for _, t := range sorted {
		text := t.Title + " " + strings.Join(t.Notes, " ")
		if n := textutil.MatchCount(text, keywords); n > 0 {
			hits = append(hits, scored{t, n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Todo, len(hits))
	for i, h := range hits {
		out[i] = h.todo
	}
	return out
}

// TodoByTitle finds an entry by case-insensitive title match.
func TodoByTitle(doc TodoDoc, title string) (int, bool) {
	for i, t := range doc.Todos {
		if strings.EqualFold(t.Title, title) {
			return i, true
		}
	}
	return 0, false
}

// TodoByID finds an entry by ID.
func TodoByID(doc TodoDoc, id string) (int, bool) {
	for i, t := range doc.Todos {
		if t.ID == id {
			return i, true
		}
	}
	return 0, false
}
