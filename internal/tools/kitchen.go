package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mkrab/famulus/internal/store"
	"github.com/mkrab/famulus/internal/textutil"
)

// KitchenTool manages the kitchen tip store.
type KitchenTool struct {
	store *store.TipStore
}

func NewKitchenTool(s *store.TipStore) *KitchenTool {
	return &KitchenTool{store: s}
}

func (t *KitchenTool) Name() string { return NameKitchen }

func (t *KitchenTool) Run(ctx context.Context, p Payload, dryRun bool) Result {
	action := canonicalAction(p)

	doc, err := t.store.Load()
	if err != nil {
		return errResult(NameKitchen, "kitchen", action, ErrStoreFailure, err.Error())
	}

	switch action {
	case "list":
		tips := append([]store.Tip(nil), doc.Tips...)
		store.SortTips(tips)
		r := baseResult(NameKitchen, "kitchen", action)
		r["tips"] = tips
		r["count"] = len(tips)
		return r

	case "find":
		keywords := keywordsFromPayload(p)
		if len(keywords) == 0 {
			return errResult(NameKitchen, "kitchen", action, ErrMissingKeywords, "find requires keywords")
		}
		matches := store.FindTips(doc, keywords)
		r := baseResult(NameKitchen, "kitchen", action)
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
		return errResult(NameKitchen, "kitchen", action, ErrUnsupportedAction, fmt.Sprintf("unsupported action %q", action))
	}
}

func (t *KitchenTool) create(doc store.TipDoc, p Payload, dryRun bool) Result {
	title := strings.TrimSpace(stringField(p, "title"))
	if title == "" {
		return errResult(NameKitchen, "kitchen", "create", ErrMissingTitle, "create requires a title")
	}
	if _, exists := store.TipByTitle(doc, title); exists {
		return errResult(NameKitchen, "kitchen", "create", ErrDuplicateTitle, fmt.Sprintf("a tip titled %q already exists", title))
	}

	keywords := sortedCopy(stringListField(p, "keywords"))
	if len(keywords) == 0 {
		// Derive keywords from the title so the tip is findable.
		keywords = sortedCopy(textutil.Keywords(title))
	}

	tip := store.Tip{
		ID:       uuid.NewString(),
		Title:    title,
		Content:  stringField(p, "content"),
		Keywords: keywords,
		Link:     stringField(p, "link"),
	}

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameKitchen, "kitchen", "create", ErrStoreFailure, err.Error())
		}
		if _, exists := store.TipByTitle(fresh, title); exists {
			return errResult(NameKitchen, "kitchen", "create", ErrDuplicateTitle, fmt.Sprintf("a tip titled %q already exists", title))
		}
		fresh.Tips = append(fresh.Tips, tip)
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameKitchen, "kitchen", "create", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameKitchen, "kitchen", "create")
	r["tip"] = tip
	return r
}

func (t *KitchenTool) update(doc store.TipDoc, p Payload, dryRun bool) Result {
	idx, res := t.locate(doc, p, "update")
	if res != nil {
		return res
	}
	tip := doc.Tips[idx]

	changed := false
	if content := stringField(p, "content"); content != "" {
		tip.Content = content
		changed = true
	}
	if keywords := stringListField(p, "keywords"); len(keywords) > 0 {
		tip.Keywords = sortedCopy(append(tip.Keywords, keywords...))
		changed = true
	}
	if newTitle := strings.TrimSpace(stringField(p, "new_title")); newTitle != "" {
		if i, exists := store.TipByTitle(doc, newTitle); exists && i != idx {
			return errResult(NameKitchen, "kitchen", "update", ErrDuplicateTitle, fmt.Sprintf("a tip titled %q already exists", newTitle))
		}
		tip.Title = newTitle
		changed = true
	}
	if link := stringField(p, "link"); link != "" {
		tip.Link = link
		changed = true
	}
	if !changed {
		return errResult(NameKitchen, "kitchen", "update", ErrMissingUpdates, "no recognized update fields in payload")
	}

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameKitchen, "kitchen", "update", ErrStoreFailure, err.Error())
		}
		i, ok := store.TipByID(fresh, tip.ID)
		if !ok {
			return errResult(NameKitchen, "kitchen", "update", ErrNotFound, "tip disappeared during update")
		}
		fresh.Tips[i] = tip
		if err := t.store.Save(fresh); err != nil {
			return errResult(NameKitchen, "kitchen", "update", ErrStoreFailure, err.Error())
		}
	}

	r := baseResult(NameKitchen, "kitchen", "update")
	r["tip"] = tip
	return r
}

func (t *KitchenTool) delete(doc store.TipDoc, p Payload, dryRun bool) Result {
	idx, res := t.locate(doc, p, "delete")
	if res != nil {
		return res
	}
	deleted := doc.Tips[idx]

	if !dryRun {
		unlock := store.Lock(t.store.Path())
		defer unlock()
		fresh, err := t.store.Load()
		if err != nil {
			return errResult(NameKitchen, "kitchen", "delete", ErrStoreFailure, err.Error())
		}
		if i, ok := store.TipByID(fresh, deleted.ID); ok {
			fresh.Tips = append(fresh.Tips[:i], fresh.Tips[i+1:]...)
			if err := t.store.Save(fresh); err != nil {
				return errResult(NameKitchen, "kitchen", "delete", ErrStoreFailure, err.Error())
			}
		}
	}

	r := baseResult(NameKitchen, "kitchen", "delete")
	r["deleted"] = deleted
	return r
}

func (t *KitchenTool) locate(doc store.TipDoc, p Payload, action string) (int, Result) {
	if id := stringField(p, "id"); id != "" {
		if i, ok := store.TipByID(doc, id); ok {
			return i, nil
		}
		return 0, errResult(NameKitchen, "kitchen", action, ErrNotFound, fmt.Sprintf("no tip with id %q", id))
	}
	title := stringField(p, "target_title")
	if title == "" {
		title = stringField(p, "title")
	}
	if title == "" {
		return 0, errResult(NameKitchen, "kitchen", action, ErrMissingID, "payload needs an id or a title")
	}
	if i, ok := store.TipByTitle(doc, title); ok {
		return i, nil
	}
	return 0, errResult(NameKitchen, "kitchen", action, ErrNotFound, fmt.Sprintf("no tip titled %q", title))
}
