package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkrab/famulus/internal/store"
	"github.com/mkrab/famulus/internal/textutil"
)

// NotesTool manages the knowledge-base ("app guide") section store. The
// store keeps an explicit insertion-order list; create honors a position
// of "top" or "bottom" (default bottom).
type NotesTool struct {
	store *store.SectionStore
}

func NewNotesTool(s *store.SectionStore) *NotesTool {
	return &NotesTool{store: s}
}

func (t *NotesTool) Name() string { return NameNotes }

func (t *NotesTool) Run(ctx context.Context, p Payload, dryRun bool) Result {
	action := canonicalAction(p)

	doc, err := t.store.Load()
	if err != nil {
		return errResult(NameNotes, "notes", action, ErrStoreFailure, err.Error())
	}

	switch action {
	case "list":
		sections := store.OrderedSections(doc)
		r := baseResult(NameNotes, "notes", action)
		r["sections"] = sections
		r["count"] = len(sections)
		return r

	case "find":
		keywords := keywordsFromPayload(p)
		if len(keywords) == 0 {
			return errResult(NameNotes, "notes", action, ErrMissingKeywords, "find requires keywords")
		}
		matches := store.FindSections(doc, keywords)
		r := baseResult(NameNotes, "notes", action)
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
		return errResult(NameNotes, "notes", action, ErrUnsupportedAction, fmt.Sprintf("unsupported action %q", action))
	}
}

func (t *NotesTool) create(doc store.SectionDoc, p Payload, dryRun bool) Result {
	title := strings.TrimSpace(stringField(p, "title"))
	if title == "" {
		return errResult(NameNotes, "notes", "create", ErrMissingTitle, "create requires a title")
	}
	id := store.Slugify(title)
	if id == "" {
		return errResult(NameNotes, "notes", "create", ErrMissingTitle, fmt.Sprintf("title %q yields an empty slug", title))
	}
	if _, exists := doc.Sections[id]; exists {
		return errResult(NameNotes, "notes", "create", ErrDuplicateTitle, fmt.Sprintf("a section with slug %q already exists", id))
	}

	keywords := sortedCopy(stringListField(p, "keywords"))
	if len(keywords) == 0 {
		keywords = sortedCopy(textutil.Keywords(title))
	}
	section := store.Section{
		ID:        id,
		Title:     title,
		Content:   stringField(p, "content"),
		Keywords:  keywords,
		Link:      stringField(p, "link"),
		UpdatedAt: store.Timestamp(),
	}

	position := strings.ToLower(stringField(p, "position"))
	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameNotes, "notes", "create", ErrStoreFailure, err.Error())
		}
		if _, exists := fresh.Sections[id]; exists {
			return errResult(NameNotes, "notes", "create", ErrDuplicateTitle, fmt.Sprintf("a section with slug %q already exists", id))
		}
		fresh.Sections[id] = section
		if position == "top" {
			fresh.Order = append([]string{id}, fresh.Order...)
		} else {
			fresh.Order = append(fresh.Order, id)
		}
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameNotes, "notes", "create", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameNotes, "notes", "create")
	r["section"] = section
	return r
}

func (t *NotesTool) update(doc store.SectionDoc, p Payload, dryRun bool) Result {
	id, res := t.locate(doc, p, "update")
	if res != nil {
		return res
	}
	section := doc.Sections[id]

	changed := false
	if content := stringField(p, "content"); content != "" {
		if strings.EqualFold(stringField(p, "mode"), "append") {
			section.Content = strings.TrimRight(section.Content, "\n") + "\n" + content
		} else {
			section.Content = content
		}
		changed = true
	}
	if keywords := stringListField(p, "keywords"); len(keywords) > 0 {
		section.Keywords = sortedCopy(append(section.Keywords, keywords...))
		changed = true
	}
	if newTitle := strings.TrimSpace(stringField(p, "new_title")); newTitle != "" {
		section.Title = newTitle
		changed = true
	}
	if link := stringField(p, "link"); link != "" {
		section.Link = link
		changed = true
	}
	if !changed {
		return errResult(NameNotes, "notes", "update", ErrMissingUpdates, "no recognized update fields in payload")
	}
	section.UpdatedAt = store.Timestamp()

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameNotes, "notes", "update", ErrStoreFailure, err.Error())
		}
		if _, ok := fresh.Sections[id]; !ok {
			return errResult(NameNotes, "notes", "update", ErrNotFound, "section disappeared during update")
		}
		fresh.Sections[id] = section
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameNotes, "notes", "update", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameNotes, "notes", "update")
	r["section"] = section
	return r
}

func (t *NotesTool) delete(doc store.SectionDoc, p Payload, dryRun bool) Result {
	id, res := t.locate(doc, p, "delete")
	if res != nil {
		return res
	}
	deleted := doc.Sections[id]

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameNotes, "notes", "delete", ErrStoreFailure, err.Error())
		}
		delete(fresh.Sections, id)
		order := fresh.Order[:0]
		for _, existing := range fresh.Order {
			if existing != id {
				order = append(order, existing)
			}
		}
		fresh.Order = order
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameNotes, "notes", "delete", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameNotes, "notes", "delete")
	r["deleted"] = deleted
	return r
}

// locate resolves a section by explicit id, slugified title, or
// case-insensitive title scan.
func (t *NotesTool) locate(doc store.SectionDoc, p Payload, action string) (string, Result) {
	if id := stringField(p, "id"); id != "" {
		if _, ok := doc.Sections[id]; ok {
			return id, nil
		}
		return "", errResult(NameNotes, "notes", action, ErrNotFound, fmt.Sprintf("no section with id %q", id))
	}
	title := stringField(p, "target_title")
	if title == "" {
		title = stringField(p, "title")
	}
	if title == "" {
		return "", errResult(NameNotes, "notes", action, ErrMissingID, "payload needs an id or a title")
	}
	if id := store.Slugify(title); id != "" {
		if _, ok := doc.Sections[id]; ok {
			return id, nil
		}
	}
	for id, sec := range doc.Sections {
		if strings.EqualFold(sec.Title, title) {
			return id, nil
		}
	}
	return "", errResult(NameNotes, "notes", action, ErrNotFound, fmt.Sprintf("no section titled %q", title))
}
