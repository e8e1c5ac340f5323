package tools

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mkrab/famulus/internal/store"
)

func newTodoTool(t *testing.T) (*TodoTool, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todos.json")
	return NewTodoTool(store.NewTodoStore(path)), path
}

func fileBytes(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	return data
}

func TestTodoCreate(t *testing.T) {
	tool, path := newTodoTool(t)

	r := tool.Run(context.Background(), Payload{
		"action":   "create",
		"title":    "Buy milk",
		"deadline": "2026-07-01",
		"notes":    []string{"From the corner shop"},
	}, false)
	if r.IsError() {
		t.Fatalf("unexpected error: %v", r)
	}
	todo, ok := r["todo"].(store.Todo)
	if !ok {
		t.Fatalf("result has no todo: %v", r)
	}
	if todo.Title != "Buy milk" || todo.Deadline != "2026-07-01" || todo.Status != "pending" {
		t.Errorf("unexpected todo %+v", todo)
	}
	if !reflect.DeepEqual(todo.Notes, []string{"From the corner shop"}) {
		t.Errorf("notes = %v", todo.Notes)
	}
	if todo.ID == "" || todo.CreatedAt == "" {
		t.Error("expected id and created_at to be set")
	}

	var doc store.TodoDoc
	found, err := store.ReadFile(path, &doc)
	if err != nil || !found || len(doc.Todos) != 1 {
		t.Fatalf("store not written: found=%v err=%v doc=%+v", found, err, doc)
	}

	if got := FormatResult(r); got != "Added todo 'Buy milk'. Due 2026-07-01." {
		t.Errorf("FormatResult = %q", got)
	}
}

func TestTodoCreateValidation(t *testing.T) {
	tool, path := newTodoTool(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		payload Payload
		code    string
	}{
		{"no title", Payload{"action": "create"}, ErrMissingTitle},
		{"empty deadline", Payload{"action": "create", "title": "x", "deadline": ""}, ErrMissingDeadline},
		{"bad deadline", Payload{"action": "create", "title": "x", "deadline": "next week"}, ErrInvalidDatetime},
	}
	for _, c := range cases {
		before := fileBytes(t, path)
		r := tool.Run(ctx, c.payload, false)
		if r.ErrorCode() != c.code {
			t.Errorf("%s: code = %q, want %q", c.name, r.ErrorCode(), c.code)
		}
		if after := fileBytes(t, path); !reflect.DeepEqual(before, after) {
			t.Errorf("%s: store changed on error result", c.name)
		}
	}
}

func TestTodoCreateDuplicate(t *testing.T) {
	tool, _ := newTodoTool(t)
	ctx := context.Background()

	if r := tool.Run(ctx, Payload{"action": "create", "title": "Buy milk"}, false); r.IsError() {
		t.Fatalf("first create failed: %v", r)
	}
	r := tool.Run(ctx, Payload{"action": "create", "title": "buy MILK"}, false)
	if r.ErrorCode() != ErrDuplicateTitle {
		t.Errorf("expected duplicate_title, got %v", r)
	}
}

func TestTodoDryRunLeavesStoreUntouched(t *testing.T) {
	tool, path := newTodoTool(t)
	ctx := context.Background()

	r := tool.Run(ctx, Payload{"action": "create", "title": "Buy milk"}, true)
	if r.IsError() {
		t.Fatalf("dry run errored: %v", r)
	}
	if _, ok := r["todo"].(store.Todo); !ok {
		t.Error("dry run should produce the full result shape")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("dry run created the store file")
	}
}

func TestTodoCompleteByTitle(t *testing.T) {
	tool, _ := newTodoTool(t)
	ctx := context.Background()

	tool.Run(ctx, Payload{"action": "create", "title": "Buy milk"}, false)
	r := tool.Run(ctx, Payload{"action": "complete", "target_title": "Buy milk", "status": "completed"}, false)
	if r.IsError() {
		t.Fatalf("update failed: %v", r)
	}
	todo := r["todo"].(store.Todo)
	if todo.Status != "completed" {
		t.Errorf("status = %q", todo.Status)
	}
	if got := FormatResult(r); got != "Marked 'Buy milk' as completed." {
		t.Errorf("FormatResult = %q", got)
	}
}

func TestTodoUpdateStatusAlias(t *testing.T) {
	tool, _ := newTodoTool(t)
	ctx := context.Background()

	tool.Run(ctx, Payload{"action": "create", "title": "Buy milk"}, false)
	r := tool.Run(ctx, Payload{"action": "update", "title": "Buy milk", "status": "done"}, false)
	if r.IsError() {
		t.Fatalf("update failed: %v", r)
	}
	if todo := r["todo"].(store.Todo); todo.Status != "completed" {
		t.Errorf("alias done not canonicalized: %q", todo.Status)
	}
}

func TestTodoUpdateErrors(t *testing.T) {
	tool, _ := newTodoTool(t)
	ctx := context.Background()
	tool.Run(ctx, Payload{"action": "create", "title": "Buy milk"}, false)

	if r := tool.Run(ctx, Payload{"action": "update", "title": "nope", "status": "done"}, false); r.ErrorCode() != ErrNotFound {
		t.Errorf("expected not_found, got %v", r)
	}
	if r := tool.Run(ctx, Payload{"action": "update", "status": "done"}, false); r.ErrorCode() != ErrMissingID {
		t.Errorf("expected missing_id, got %v", r)
	}
	if r := tool.Run(ctx, Payload{"action": "update", "title": "Buy milk"}, false); r.ErrorCode() != ErrMissingUpdates {
		t.Errorf("expected missing_updates, got %v", r)
	}
	if r := tool.Run(ctx, Payload{"action": "update", "title": "Buy milk", "status": "sideways"}, false); r.ErrorCode() != ErrInvalidStatus {
		t.Errorf("expected invalid_status, got %v", r)
	}
}

func TestTodoDeleteAndList(t *testing.T) {
	tool, _ := newTodoTool(t)
	ctx := context.Background()

	tool.Run(ctx, Payload{"action": "create", "title": "A", "deadline": "2026-07-02"}, false)
	tool.Run(ctx, Payload{"action": "create", "title": "B", "deadline": "2026-07-01"}, false)
	tool.Run(ctx, Payload{"action": "create", "title": "C"}, false)

	r := tool.Run(ctx, Payload{"action": "remove", "title": "C"}, false)
	if r.IsError() {
		t.Fatalf("delete failed: %v", r)
	}

	r = tool.Run(ctx, Payload{"action": "list"}, false)
	todos := r["todos"].([]store.Todo)
	if len(todos) != 2 || todos[0].Title != "B" || todos[1].Title != "A" {
		t.Errorf("list order wrong: %+v", todos)
	}
}

func TestTodoFindRequiresKeywords(t *testing.T) {
	tool, _ := newTodoTool(t)
	r := tool.Run(context.Background(), Payload{"action": "find"}, false)
	if r.ErrorCode() != ErrMissingKeywords {
		t.Errorf("expected missing_keywords, got %v", r)
	}
}

func TestTodoUnsupportedAction(t *testing.T) {
	tool, _ := newTodoTool(t)
	r := tool.Run(context.Background(), Payload{"action": "explode"}, false)
	if r.ErrorCode() != ErrUnsupportedAction {
		t.Errorf("expected unsupported_action, got %v", r)
	}
}

func TestCalendarCreateFromDateAndTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	tool := NewCalendarTool(store.NewEventStore(path))
	ctx := context.Background()

	r := tool.Run(ctx, Payload{
		"action": "create", "title": "Dentist",
		"date": "2026-07-01", "start_time": "14:30",
	}, false)
	if r.IsError() {
		t.Fatalf("create failed: %v", r)
	}
	event := r["event"].(store.Event)
	if event.Start != "2026-07-01T14:30" || event.End != "2026-07-01T15:30" {
		t.Errorf("times = %q - %q", event.Start, event.End)
	}

	r = tool.Run(ctx, Payload{"action": "create", "title": "Breakfast", "date": "2026-07-01"}, false)
	if event := r["event"].(store.Event); event.Start != "2026-07-01T09:00" {
		t.Errorf("default start = %q", event.Start)
	}
}

func TestCalendarInvalidDatetime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	tool := NewCalendarTool(store.NewEventStore(path))
	ctx := context.Background()

	cases := []Payload{
		{"action": "create", "title": "x"},
		{"action": "create", "title": "x", "start": "soonish"},
		{"action": "create", "title": "x", "date": "2026-07-01", "start_time": "15:00", "end_time": "14:00"},
	}
	for i, p := range cases {
		if r := tool.Run(ctx, p, false); r.ErrorCode() != ErrInvalidDatetime {
			t.Errorf("case %d: expected invalid_datetime, got %v", i, r)
		}
	}
}

func TestKitchenCreateDerivesKeywords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tips.json")
	tool := NewKitchenTool(store.NewTipStore(path))
	ctx := context.Background()

	r := tool.Run(ctx, Payload{"action": "create", "title": "Clean the oven", "content": "Use baking soda."}, false)
	if r.IsError() {
		t.Fatalf("create failed: %v", r)
	}
	tip := r["tip"].(store.Tip)
	want := []string{"clean", "oven"}
	if !reflect.DeepEqual(tip.Keywords, want) {
		t.Errorf("keywords = %v, want %v", tip.Keywords, want)
	}

	found := tool.Run(ctx, Payload{"action": "find", "keywords": []string{"oven"}}, false)
	if matches := found["matches"].([]store.Tip); len(matches) != 1 {
		t.Errorf("find by derived keyword failed: %v", found)
	}
}

func TestNotesCreateOrderAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.json")
	tool := NewNotesTool(store.NewSectionStore(path))
	ctx := context.Background()

	tool.Run(ctx, Payload{"action": "create", "title": "Getting Started", "content": "First steps."}, false)
	tool.Run(ctx, Payload{"action": "create", "title": "Troubleshooting", "content": "When it breaks.", "position": "top"}, false)

	r := tool.Run(ctx, Payload{"action": "list"}, false)
	sections := r["sections"].([]store.Section)
	if len(sections) != 2 || sections[0].ID != "troubleshooting" {
		t.Fatalf("expected top insert first, got %+v", sections)
	}

	if r := tool.Run(ctx, Payload{"action": "create", "title": "getting started!"}, false); r.ErrorCode() != ErrDuplicateTitle {
		t.Errorf("expected slug duplicate, got %v", r)
	}

	tool.Run(ctx, Payload{"action": "delete", "title": "Troubleshooting"}, false)
	r = tool.Run(ctx, Payload{"action": "list"}, false)
	if sections := r["sections"].([]store.Section); len(sections) != 1 || sections[0].ID != "getting-started" {
		t.Errorf("delete left %+v", sections)
	}
}

func TestNotesUpdateAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.json")
	tool := NewNotesTool(store.NewSectionStore(path))
	ctx := context.Background()

	tool.Run(ctx, Payload{"action": "create", "title": "FAQ", "content": "Q1"}, false)
	r := tool.Run(ctx, Payload{"action": "update", "title": "FAQ", "content": "Q2", "mode": "append"}, false)
	if r.IsError() {
		t.Fatalf("update failed: %v", r)
	}
	if sec := r["section"].(store.Section); sec.Content != "Q1\nQ2" {
		t.Errorf("content = %q", sec.Content)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	tool, _ := newTodoTool(t)
	reg.Register(tool)

	if _, err := reg.Run(context.Background(), "nope", Payload{}, false); err == nil {
		t.Error("expected error for unknown tool")
	}
	r, err := reg.Run(context.Background(), "TODO_LIST", Payload{"action": "add", "title": "x"}, false)
	if err != nil || r.IsError() {
		t.Fatalf("registry run failed: %v %v", err, r)
	}
	if r["action"] != "create" {
		t.Errorf("alias add not canonicalized: %v", r["action"])
	}
	if !reflect.DeepEqual(reg.Names(), []string{"todo_list"}) {
		t.Errorf("Names = %v", reg.Names())
	}
}

func TestFormatErrorMessages(t *testing.T) {
	r := errResult(NameTodo, "todo", "find", ErrNotFound, "no todo titled \"x\"")
	if got := FormatResult(r); got != "I could not find that. no todo titled \"x\"" {
		t.Errorf("FormatResult = %q", got)
	}
	r = errResult(NameWeather, "weather", "current", ErrCityNotFound, "")
	if got := FormatResult(r); got != "Sorry, I could not find that city." {
		t.Errorf("FormatResult = %q", got)
	}
}

func TestFormatWeatherForecast(t *testing.T) {
	r := baseResult(NameWeather, "weather", "forecast")
	r["city"] = "Paris"
	r["day_phrase"] = "tomorrow"
	r["hour"] = 18
	r["temperature"] = 18.2
	r["condition"] = "rain"
	got := FormatResult(r)
	want := "Weather in Paris tomorrow at 18:00: 18°C, rain."
	if got != want {
		t.Errorf("FormatResult = %q, want %q", got, want)
	}
}
