package purge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mkrab/famulus/internal/policy"
	"github.com/mkrab/famulus/internal/store"
)

const retentionPolicy = `
policy_version: "2026-06-01"
allowed_tools: [todo_list]
retention_max_entries:
  turn_logs: 3
  pending_queue: 2
  tool_stores: 2
`

func retentionPol(t *testing.T) *policy.Policy {
	t.Helper()
	pol, err := policy.Parse([]byte(retentionPolicy))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return pol
}

func writeJSONL(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `{"turn_id":"t%d"}`+"\n", i)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPurgeJSONLKeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.jsonl")
	writeJSONL(t, path, 5)

	rep, err := PurgeJSONL(path, 3, false)
	if err != nil {
		t.Fatalf("PurgeJSONL: %v", err)
	}
	if rep.Kept != 3 || rep.Removed != 2 {
		t.Errorf("report = %+v, want kept 3 removed 2", rep)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 || lines[0] != `{"turn_id":"t2"}` || lines[2] != `{"turn_id":"t4"}` {
		t.Errorf("kept lines = %v, want the newest tail", lines)
	}
}

func TestPurgeJSONLDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.jsonl")
	writeJSONL(t, path, 5)

	rep, err := PurgeJSONL(path, 2, true)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Removed != 3 {
		t.Errorf("removed = %d, want 3", rep.Removed)
	}
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "\n"); n != 5 {
		t.Errorf("dry run rewrote the file: %d lines left", n)
	}
}

func TestPurgeJSONLMissingFile(t *testing.T) {
	rep, err := PurgeJSONL(filepath.Join(t.TempDir(), "absent.jsonl"), 3, false)
	if err != nil || rep.Kept != 0 || rep.Removed != 0 {
		t.Errorf("report = %+v err = %v, want zeroes", rep, err)
	}
}

func TestPurgeTodosKeepsNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	s := store.NewTodoStore(path)
	err := s.Save(store.TodoDoc{Todos: []store.Todo{
		{ID: "old", Title: "Old", CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: "mid", Title: "Mid", CreatedAt: "2026-03-01T00:00:00Z"},
		{ID: "new", Title: "New", CreatedAt: "2026-02-01T00:00:00Z", UpdatedAt: "2026-06-01T00:00:00Z"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	rep, err := PurgeTodos(path, 2, false)
	if err != nil {
		t.Fatalf("PurgeTodos: %v", err)
	}
	if rep.Kept != 2 || rep.Removed != 1 {
		t.Errorf("report = %+v, want kept 2 removed 1", rep)
	}

	doc, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	// UpdatedAt outranks CreatedAt, and surviving entries keep file order.
	if len(doc.Todos) != 2 || doc.Todos[0].ID != "mid" || doc.Todos[1].ID != "new" {
		t.Errorf("kept todos = %+v, want [mid new]", doc.Todos)
	}
}

func TestPurgeTipsTrimsFront(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tips.json")
	s := store.NewTipStore(path)
	err := s.Save(store.TipDoc{Tips: []store.Tip{
		{ID: "1", Title: "First"},
		{ID: "2", Title: "Second"},
		{ID: "3", Title: "Third"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	rep, err := PurgeTips(path, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Removed != 1 {
		t.Errorf("removed = %d, want 1", rep.Removed)
	}
	doc, _ := s.Load()
	if len(doc.Tips) != 2 || doc.Tips[0].ID != "2" {
		t.Errorf("kept tips = %+v, want [2 3]", doc.Tips)
	}
}

func TestPurgeSectionsRebuildsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.json")
	s := store.NewSectionStore(path)
	err := s.Save(store.SectionDoc{
		Sections: map[string]store.Section{
			"a": {ID: "a", Title: "A", UpdatedAt: "2026-01-01T00:00:00Z"},
			"b": {ID: "b", Title: "B", UpdatedAt: "2026-05-01T00:00:00Z"},
			"c": {ID: "c", Title: "C", UpdatedAt: "2026-03-01T00:00:00Z"},
		},
		Order: []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rep, err := PurgeSections(path, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Kept != 2 || rep.Removed != 1 {
		t.Errorf("report = %+v, want kept 2 removed 1", rep)
	}
	doc, _ := s.Load()
	if len(doc.Order) != 2 || doc.Order[0] != "b" || doc.Order[1] != "c" {
		t.Errorf("order = %v, want [b c]", doc.Order)
	}
	if _, stale := doc.Sections["a"]; stale {
		t.Error("purged section still present in the map")
	}
}

func TestEngineRunWritesState(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		TurnLog:     filepath.Join(dir, "turns.jsonl"),
		ReviewQueue: filepath.Join(dir, "review.jsonl"),
		Todos:       filepath.Join(dir, "todos.json"),
		State:       filepath.Join(dir, "purge_state.json"),
	}
	writeJSONL(t, paths.TurnLog, 5)
	writeJSONL(t, paths.ReviewQueue, 5)

	fixed := time.Date(2026, 6, 29, 12, 0, 0, 0, time.UTC)
	eng := New(retentionPol(t), paths).WithClock(func() time.Time { return fixed })

	reports, err := eng.Run(false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	byTarget := map[string]Report{}
	for _, r := range reports {
		byTarget[r.Target] = r
	}
	if r := byTarget["turn_log"]; r.Removed != 2 {
		t.Errorf("turn_log report = %+v, want removed 2", r)
	}
	if r := byTarget["review_queue"]; r.Removed != 3 {
		t.Errorf("review_queue report = %+v, want removed 3", r)
	}
	if _, found := byTarget["todos"]; !found {
		t.Error("tool store bucket not visited")
	}

	st, found, err := LoadState(paths.State)
	if err != nil || !found {
		t.Fatalf("LoadState = (%v, %v, %v)", st, found, err)
	}
	if st.LastPurge != "2026-06-29T12:00:00Z" {
		t.Errorf("last_purge = %q", st.LastPurge)
	}
	if st.Removed["turn_log"] != 2 {
		t.Errorf("state removed = %v", st.Removed)
	}
}

func TestEngineDryRunSkipsState(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		TurnLog: filepath.Join(dir, "turns.jsonl"),
		State:   filepath.Join(dir, "purge_state.json"),
	}
	writeJSONL(t, paths.TurnLog, 5)

	if _, err := New(retentionPol(t), paths).Run(true); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, found, _ := LoadState(paths.State); found {
		t.Error("dry run persisted state")
	}
}
