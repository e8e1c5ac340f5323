package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkrab/famulus/internal/store"
)

// Valid todo statuses and priorities.
var (
	todoStatuses   = map[string]bool{"pending": true, "completed": true}
	todoPriorities = map[string]bool{"low": true, "normal": true, "medium": true, "high": true}
)

// statusAliases accept common phrasings for completion state.
var statusAliases = map[string]string{
	"done":     "completed",
	"finished": "completed",
	"complete": "completed",
	"open":     "pending",
	"todo":     "pending",
}

// TodoTool manages the todo list store.
type TodoTool struct {
	store *store.TodoStore
}

func NewTodoTool(s *store.TodoStore) *TodoTool {
	return &TodoTool{store: s}
}

func (t *TodoTool) Name() string { return NameTodo }

func (t *TodoTool) Run(ctx context.Context, p Payload, dryRun bool) Result {
	action := canonicalAction(p)

	doc, err := t.store.Load()
	if err != nil {
		return errResult(NameTodo, "todo", action, ErrStoreFailure, err.Error())
	}

	switch action {
	case "list":
		todos := append([]store.Todo(nil), doc.Todos...)
		store.SortTodos(todos)
		r := baseResult(NameTodo, "todo", action)
		r["todos"] = todos
		r["count"] = len(todos)
		return r

	case "find":
		keywords := keywordsFromPayload(p)
		if len(keywords) == 0 {
			return errResult(NameTodo, "todo", action, ErrMissingKeywords, "find requires keywords")
		}
		matches := store.FindTodos(doc, keywords)
		r := baseResult(NameTodo, "todo", action)
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
		return errResult(NameTodo, "todo", action, ErrUnsupportedAction, fmt.Sprintf("unsupported action %q", action))
	}
}

func (t *TodoTool) create(doc store.TodoDoc, p Payload, dryRun bool) Result {
	title := strings.TrimSpace(stringField(p, "title"))
	if title == "" {
		return errResult(NameTodo, "todo", "create", ErrMissingTitle, "create requires a title")
	}
	if _, exists := store.TodoByTitle(doc, title); exists {
		return errResult(NameTodo, "todo", "create", ErrDuplicateTitle, fmt.Sprintf("a todo titled %q already exists", title))
	}

	deadline := stringField(p, "deadline")
	if _, present := p["deadline"]; present && deadline == "" {
		return errResult(NameTodo, "todo", "create", ErrMissingDeadline, "deadline field is present but empty")
	}
	if deadline != "" {
		if _, err := time.Parse("2006-01-02", deadline); err != nil {
			return errResult(NameTodo, "todo", "create", ErrInvalidDatetime, fmt.Sprintf("deadline %q is not an ISO date", deadline))
		}
	}

	priority := strings.ToLower(stringField(p, "priority"))
	if priority != "" && !todoPriorities[priority] {
		priority = ""
	}

	now := store.Timestamp()
	todo := store.Todo{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    "pending",
		Deadline:  deadline,
		Priority:  priority,
		Notes:     stringListField(p, "notes"),
		Link:      stringField(p, "link"),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameTodo, "todo", "create", ErrStoreFailure, err.Error())
		}
		if _, exists := store.TodoByTitle(fresh, title); exists {
			return errResult(NameTodo, "todo", "create", ErrDuplicateTitle, fmt.Sprintf("a todo titled %q already exists", title))
		}
		fresh.Todos = append(fresh.Todos, todo)
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameTodo, "todo", "create", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameTodo, "todo", "create")
	r["todo"] = todo
	return r
}

func (t *TodoTool) update(doc store.TodoDoc, p Payload, dryRun bool) Result {
	idx, res := t.locate(doc, p, "update")
	if res != nil {
		return res
	}
	todo := doc.Todos[idx]

	changed := false
	if status := strings.ToLower(stringField(p, "status")); status != "" {
		if canon, ok := statusAliases[status]; ok {
			status = canon
		}
		if !todoStatuses[status] {
			return errResult(NameTodo, "todo", "update", ErrInvalidStatus, fmt.Sprintf("status %q is not pending or completed", status))
		}
		todo.Status = status
		changed = true
	}
	if deadline := stringField(p, "deadline"); deadline != "" {
		if _, err := time.Parse("2006-01-02", deadline); err != nil {
			return errResult(NameTodo, "todo", "update", ErrInvalidDatetime, fmt.Sprintf("deadline %q is not an ISO date", deadline))
		}
		todo.Deadline = deadline
		changed = true
	}
	if priority := strings.ToLower(stringField(p, "priority")); priority != "" && todoPriorities[priority] {
		todo.Priority = priority
		changed = true
	}
	if newTitle := strings.TrimSpace(stringField(p, "new_title")); newTitle != "" {
		if i, exists := store.TodoByTitle(doc, newTitle); exists && i != idx {
			return errResult(NameTodo, "todo", "update", ErrDuplicateTitle, fmt.Sprintf("a todo titled %q already exists", newTitle))
		}
		todo.Title = newTitle
		changed = true
	}
	if notes := stringListField(p, "notes"); len(notes) > 0 {
		todo.Notes = append(todo.Notes, notes...)
		changed = true
	}
	if link := stringField(p, "link"); link != "" {
		todo.Link = link
		changed = true
	}
	if !changed {
		return errResult(NameTodo, "todo", "update", ErrMissingUpdates, "no recognized update fields in payload")
	}
	todo.UpdatedAt = store.Timestamp()

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameTodo, "todo", "update", ErrStoreFailure, err.Error())
		}
		i, ok := store.TodoByID(fresh, todo.ID)
		if !ok {
			return errResult(NameTodo, "todo", "update", ErrNotFound, "todo disappeared during update")
		}
		fresh.Todos[i] = todo
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameTodo, "todo", "update", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameTodo, "todo", "update")
	r["todo"] = todo
	return r
}

func (t *TodoTool) delete(doc store.TodoDoc, p Payload, dryRun bool) Result {
	idx, res := t.locate(doc, p, "delete")
	if res != nil {
		return res
	}
	deleted := doc.Todos[idx]

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameTodo, "todo", "delete", ErrStoreFailure, err.Error())
		}
		if i, ok := store.TodoByID(fresh, deleted.ID); ok {
			fresh.Todos = append(fresh.Todos[:i], fresh.Todos[i+1:]...)
			if err := t.store.Save(fresh); err != nil {
				return errResult(NameTodo, "todo", "delete", ErrStoreFailure, err.Error())
			}
		}
	}

	r := baseResult(NameTodo, "todo", "delete")
	r["deleted"] = deleted
	return r
}

// locate resolves the target entry from id, target_title or title. It
// returns a non-nil error result when the target is missing or not found.
func (t *TodoTool) locate(doc store.TodoDoc, p Payload, action string) (int, Result) {
	if id := stringField(p, "id"); id != "" {
		if i, ok := store.TodoByID(doc, id); ok {
			return i, nil
		}
		return 0, errResult(NameTodo, "todo", action, ErrNotFound, fmt.Sprintf("no todo with id %q", id))
	}
	title := stringField(p, "target_title")
	if title == "" {
		title = stringField(p, "title")
	}
	if title == "" {
		return 0, errResult(NameTodo, "todo", action, ErrMissingID, "payload needs an id or a title")
	}
	if i, ok := store.TodoByTitle(doc, title); ok {
		return i, nil
	}
	return 0, errResult(NameTodo, "todo", action, ErrNotFound, fmt.Sprintf("no todo titled %q", title))
}
