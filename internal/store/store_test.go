package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadFileMissing(t *testing.T) {
	var doc TodoDoc
	found, err := ReadFile(filepath.Join(t.TempDir(), "nope.json"), &doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected found=false for missing file")
	}
}

func TestReadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	var doc TodoDoc
	found, err := ReadFile(path, &doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected found=false for empty file")
	}
}

func TestReadFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var doc TodoDoc
	_, err := ReadFile(path, &doc)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "todos.json")
	in := TodoDoc{Todos: []Todo{{ID: "1", Title: "Buy milk", Status: "pending"}}}
	if err := WriteFile(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out TodoDoc
	found, err := ReadFile(path, &out)
	if err != nil || !found {
		t.Fatalf("read back: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todos.json")
	if err := WriteFile(path, TodoDoc{Todos: []Todo{}}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "todos.json" {
		t.Errorf("expected only todos.json in dir, got %v", entries)
	}
}

func TestSortTodosDeadlineFirst(t *testing.T) {
	todos := []Todo{
		{Title: "zeta"},
		{Title: "Beta", Deadline: "2026-07-02"},
		{Title: "alpha"},
		{Title: "Alef", Deadline: "2026-07-01"},
	}
	SortTodos(todos)

	want := []string{"Alef", "Beta", "alpha", "zeta"}
	for i, title := range want {
		if todos[i].Title != title {
			t.Fatalf("position %d: got %q, want %q (all: %+v)", i, todos[i].Title, title, todos)
		}
	}
}

func TestSortEventsByStart(t *testing.T) {
	events := []Event{
		{Title: "later", Start: "2026-07-01T15:00"},
		{Title: "earlier", Start: "2026-07-01T09:00"},
	}
	SortEvents(events)
	if events[0].Title != "earlier" {
		t.Errorf("expected earlier event first, got %q", events[0].Title)
	}
}

func TestFindTodosRanking(t *testing.T) {
	doc := TodoDoc{Todos: []Todo{
		{Title: "Buy milk"},
		{Title: "Buy milk and bread"},
		{Title: "Call mom"},
	}}
	matches := FindTodos(doc, []string{"buy", "bread"})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Title != "Buy milk and bread" {
		t.Errorf("expected best match first, got %q", matches[0].Title)
	}
}

func TestTodoByTitleCaseInsensitive(t *testing.T) {
	doc := TodoDoc{Todos: []Todo{{Title: "Buy Milk"}}}
	if _, ok := TodoByTitle(doc, "buy milk"); !ok {
		t.Error("expected case-insensitive title match")
	}
	if _, ok := TodoByTitle(doc, "buy bread"); ok {
		t.Error("unexpected match for different title")
	}
}

func TestOrderedSections(t *testing.T) {
	doc := SectionDoc{
		Sections: map[string]Section{
			"b": {ID: "b", Title: "B"},
			"a": {ID: "a", Title: "A"},
			"c": {ID: "c", Title: "C"},
		},
		Order: []string{"c", "a"},
	}
	got := OrderedSections(doc)
	if len(got) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(got))
	}
	// Order list first, then strays sorted.
	if got[0].ID != "c" || got[1].ID != "a" || got[2].ID != "b" {
		t.Errorf("unexpected order: %v", []string{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Getting Started", "getting-started"},
		{"  Fjern støj  ", "fjern-støj"},
		{"A/B testing!", "a-b-testing"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLockSerializesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json")
	done := make(chan struct{})
	unlock := Lock(path)
	go func() {
		u := Lock(path)
		u()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second locker ran while first lock held")
	default:
	}
	unlock()
	<-done
}
