package store

import (
	"sort"
	"strings"

	"github.com/mkrab/famulus/internal/textutil"
)

// Tip is a kitchen tip: a titled snippet with search keywords.
type Tip struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
	Link     string   `json:"link,omitempty"`
}

// TipDoc is the on-disk shape of the kitchen tip store.
type TipDoc struct {
	Tips []Tip `json:"tips"`
}

// TipStore persists kitchen tips to a single JSON file.
type TipStore struct {
	path string
}

func NewTipStore(path string) *TipStore {
	return &TipStore{path: path}
}

func (s *TipStore) Path() string { return s.path }

func (s *TipStore) Load() (TipDoc, error) {
	var doc TipDoc
	if _, err := ReadFile(s.path, &doc); err != nil {
		return TipDoc{}, err
	}
	if doc.Tips == nil {
		doc.Tips = []Tip{}
	}
	return doc, nil
}

func (s *TipStore) Save(doc TipDoc) error {
	return WriteFile(s.path, doc)
}

// SortTips orders tips by case-insensitive title.
func SortTips(tips []Tip) {
	sort.SliceStable(tips, func(i, j int) bool {
		return strings.ToLower(tips[i].Title) < strings.ToLower(tips[j].Title)
	})
}

// FindTips returns tips matching any keyword in title, content or the
// tip's own keyword set, ranked by match count descending then title.
func FindTips(doc TipDoc, keywords []string) []Tip {
	sorted := append([]Tip(nil), doc.Tips...)
	SortTips(sorted)

	type scored struct {
		tip   Tip
		score int
	}
	var hits []scored
	for _, t := range sorted {
		text := t.Title + " " + t.Content + " " + strings.Join(t.Keywords, " ")
		if n := textutil.MatchCount(text, keywords); n > 0 {
			hits = append(hits, scored{t, n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Tip, len(hits))
	for i, h := range hits {
		out[i] = h.tip
	}
	return out
}

// TipByTitle finds a tip by case-insensitive title match.
func TipByTitle(doc TipDoc, title string) (int, bool) {
	for i, t := range doc.Tips {
		if strings.EqualFold(t.Title, title) {
			return i, true
		}
	}
	return 0, false
}

// TipByID finds a tip by ID.
func TipByID(doc TipDoc, id string) (int, bool) {
	for i, t := range doc.Tips {
		if t.ID == id {
			return i, true
		}
	}
	return 0, false
}
