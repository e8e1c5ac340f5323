package store

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mkrab/famulus/internal/textutil"
)

// Section is one knowledge-base section, keyed by a slug ID.
type Section struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Keywords  []string `json:"keywords"`
	Link      string   `json:"link,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

// SectionDoc is the on-disk shape of the knowledge base: a mapping from
// slug to section plus an explicit insertion-order list.
type SectionDoc struct {
	Sections map[string]Section `json:"sections"`
	Order    []string           `json:"order"`
}

// SectionStore persists the knowledge base to a single JSON file.
type SectionStore struct {
	path string
}

func NewSectionStore(path string) *SectionStore {
	return &SectionStore{path: path}
}

func (s *SectionStore) Path() string { return s.path }

func (s *SectionStore) Load() (SectionDoc, error) {
	var doc SectionDoc
	if _, err := ReadFile(s.path, &doc); err != nil {
		return SectionDoc{}, err
	}
	if doc.Sections == nil {
		doc.Sections = map[string]Section{}
	}
	if doc.Order == nil {
		doc.Order = []string{}
	}
	return doc, nil
}

func (s *SectionStore) Save(doc SectionDoc) error {
	return WriteFile(s.path, doc)
}

// OrderedSections returns sections in explicit insertion order. IDs in the
// order list with no matching section are skipped; sections missing from
// the order list are appended by slug so nothing is silently hidden.
func OrderedSections(doc SectionDoc) []Section {
	seen := make(map[string]bool, len(doc.Order))
	var out []Section
	for _, id := range doc.Order {
		if sec, ok := doc.Sections[id]; ok {
			out = append(out, sec)
			seen[id] = true
		}
	}
	var strays []string
	for id := range doc.Sections {
		if !seen[id] {
			strays = append(strays, id)
		}
	}
	sort.Strings(strays)
	for _, id := range strays {
		out = append(out, doc.Sections[id])
	}
	return out
}

// FindSections returns sections matching any keyword, ranked by match
// count descending, ties broken by insertion order.
func FindSections(doc SectionDoc, keywords []string) []Section {
	type scored struct {
		sec   Section
		score int
	}
	var hits []scored
	for _, sec := range OrderedSections(doc) {
		text := sec.Title + " " + sec.Content + " " + strings.Join(sec.Keywords, " ")
		if n := textutil.MatchCount(text, keywords); n > 0 {
			hits = append(hits, scored{sec, n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Section, len(hits))
	for i, h := range hits {
		out[i] = h.sec
	}
	return out
}

var slugRe = regexp.MustCompile(`[^a-z0-9æøå]+`)

// Slugify derives a stable section ID from a title.
func Slugify(title string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
