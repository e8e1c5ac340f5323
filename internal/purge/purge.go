// Package purge applies the retention limits from the governance policy
// to the JSONL log streams and the tool stores. Rewrites go through the
// same temp-file rename discipline as every other store write.
package purge

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mkrab/famulus/internal/policy"
	"github.com/mkrab/famulus/internal/store"
)

const maxLineBytes = 4 << 20

// Report summarizes one purge target.
type Report struct {
	Target  string `json:"target"`
	Kept    int    `json:"kept"`
	Removed int    `json:"removed"`
}

// Paths names every file the engine may touch.
type Paths struct {
	TurnLog          string
	ReviewQueue      string
	CorrectedPrompts string
	Todos            string
	Events           string
	Tips             string
	Sections         string
	State            string
}

// State is persisted after each real run.
type State struct {
	LastPurge string         `json:"last_purge"`
	Removed   map[string]int `json:"removed"`
}

// Engine runs retention over all configured targets.
type Engine struct {
	pol   *policy.Policy
	paths Paths
	now   func() time.Time
}

func New(pol *policy.Policy, paths Paths) *Engine {
	return &Engine{pol: pol, paths: paths, now: time.Now}
}

// WithClock fixes the clock (tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run purges every bucket with a retention limit. With dryRun the
// reports carry the counts that would apply but nothing is rewritten.
// A missing target file is not an error; it simply reports zero.
func (e *Engine) Run(dryRun bool) ([]Report, error) {
	var reports []Report

	jsonl := []struct {
		bucket, target, path string
	}{
		{policy.BucketTurnLogs, "turn_log", e.paths.TurnLog},
		{policy.BucketPendingQueue, "review_queue", e.paths.ReviewQueue},
		{policy.BucketCorrectedPrompts, "corrected_prompts", e.paths.CorrectedPrompts},
	}
	for _, j := range jsonl {
		keep, ok := e.pol.RetentionLimit(j.bucket)
		if !ok || j.path == "" {
			continue
		}
		rep, err := PurgeJSONL(j.path, keep, dryRun)
		if err != nil {
			return reports, fmt.Errorf("purge %s: %w", j.target, err)
		}
		rep.Target = j.target
		reports = append(reports, rep)
	}

	if keep, ok := e.pol.RetentionLimit(policy.BucketToolStores); ok {
		stores := []struct {
			target string
			fn     func(string, int, bool) (Report, error)
			path   string
		}{
			{"todos", PurgeTodos, e.paths.Todos},
			{"calendar", PurgeEvents, e.paths.Events},
			{"kitchen_tips", PurgeTips, e.paths.Tips},
			{"notes", PurgeSections, e.paths.Sections},
		}
		for _, s := range stores {
			if s.path == "" {
				continue
			}
			rep, err := s.fn(s.path, keep, dryRun)
			if err != nil {
				return reports, fmt.Errorf("purge %s: %w", s.target, err)
			}
			rep.Target = s.target
			reports = append(reports, rep)
		}
	}

	if !dryRun && e.paths.State != "" {
		if err := e.writeState(reports); err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (e *Engine) writeState(reports []Report) error {
	st := State{
		LastPurge: e.now().UTC().Format(time.RFC3339),
		Removed:   map[string]int{},
	}
	for _, r := range reports {
		st.Removed[r.Target] = r.Removed
	}
	return store.WriteFile(e.paths.State, st)
}

// LoadState reads the last persisted purge state. ok is false when no
// run has completed yet.
func LoadState(path string) (State, bool, error) {
	var st State
	found, err := store.ReadFile(path, &st)
	return st, found, err
}

// PurgeJSONL keeps the newest keep lines of an append-only stream.
// Records are already time-ordered by construction, so the tail is the
// newest slice.
func PurgeJSONL(path string, keep int, dryRun bool) (Report, error) {
	unlock := store.Lock(path)
	defer unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Report{}, nil
		}
		return Report{}, err
	}
	var lines [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	scanErr := sc.Err()
	f.Close()
	if scanErr != nil {
		return Report{}, scanErr
	}

	if keep < 0 {
		keep = 0
	}
	if len(lines) <= keep {
		return Report{Kept: len(lines)}, nil
	}
	kept := lines[len(lines)-keep:]
	rep := Report{Kept: len(kept), Removed: len(lines) - len(kept)}
	if dryRun {
		return rep, nil
	}

	var buf bytes.Buffer
	for _, line := range kept {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := store.WriteBytes(path, buf.Bytes()); err != nil {
		return rep, err
	}
	return rep, nil
}

// keepNewest returns the indexes to keep out of n entries, given each
// entry's timestamp probe. Entries without a timestamp count as oldest.
// The returned set preserves original order.
func keepNewest(n, keep int, stamp func(i int) string) map[int]bool {
	if keep < 0 {
		keep = 0
	}
	if n <= keep {
		all := make(map[int]bool, n)
		for i := 0; i < n; i++ {
			all[i] = true
		}
		return all
	}
	type aged struct {
		idx   int
		stamp string
	}
	order := make([]aged, n)
	for i := 0; i < n; i++ {
		order[i] = aged{idx: i, stamp: stamp(i)}
	}
	// Oldest first; empty stamps sort before everything, ties keep file
	// order so the earlier entry is considered older.
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].stamp < order[b].stamp
	})
	kept := make(map[int]bool, keep)
	for _, a := range order[n-keep:] {
		kept[a.idx] = true
	}
	return kept
}

func PurgeTodos(path string, keep int, dryRun bool) (Report, error) {
	unlock := store.Lock(path)
	defer unlock()

	s := store.NewTodoStore(path)
	doc, err := s.Load()
	if err != nil {
		return Report{}, err
	}
	kept := keepNewest(len(doc.Todos), keep, func(i int) string {
		if doc.Todos[i].UpdatedAt != "" {
			return doc.Todos[i].UpdatedAt
		}
		return doc.Todos[i].CreatedAt
	})
	rep := Report{Kept: len(kept), Removed: len(doc.Todos) - len(kept)}
	if dryRun || rep.Removed == 0 {
		return rep, nil
	}
	out := doc.Todos[:0:0]
	for i, t := range doc.Todos {
		if kept[i] {
			out = append(out, t)
		}
	}
	doc.Todos = out
	return rep, s.Save(doc)
}

func PurgeEvents(path string, keep int, dryRun bool) (Report, error) {
	unlock := store.Lock(path)
	defer unlock()

	s := store.NewEventStore(path)
	doc, err := s.Load()
	if err != nil {
		return Report{}, err
	}
	kept := keepNewest(len(doc.Events), keep, func(i int) string {
		ev := doc.Events[i]
		switch {
		case ev.UpdatedAt != "":
			return ev.UpdatedAt
		case ev.CreatedAt != "":
			return ev.CreatedAt
		default:
			return ev.Start
		}
	})
	rep := Report{Kept: len(kept), Removed: len(doc.Events) - len(kept)}
	if dryRun || rep.Removed == 0 {
		return rep, nil
	}
	out := doc.Events[:0:0]
	for i, ev := range doc.Events {
		if kept[i] {
			out = append(out, ev)
		}
	}
	doc.Events = out
	return rep, s.Save(doc)
}

// PurgeTips trims from the front of the file: tips carry no timestamps,
// so position stands in for age.
func PurgeTips(path string, keep int, dryRun bool) (Report, error) {
	unlock := store.Lock(path)
	defer unlock()

	s := store.NewTipStore(path)
	doc, err := s.Load()
	if err != nil {
		return Report{}, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(doc.Tips) <= keep {
		return Report{Kept: len(doc.Tips)}, nil
	}
	rep := Report{Kept: keep, Removed: len(doc.Tips) - keep}
	if dryRun {
		return rep, nil
	}
	doc.Tips = doc.Tips[len(doc.Tips)-keep:]
	return rep, s.Save(doc)
}

func PurgeSections(path string, keep int, dryRun bool) (Report, error) {
	unlock := store.Lock(path)
	defer unlock()

	s := store.NewSectionStore(path)
	doc, err := s.Load()
	if err != nil {
		return Report{}, err
	}
	ordered := store.OrderedSections(doc)
	kept := keepNewest(len(ordered), keep, func(i int) string {
		return ordered[i].UpdatedAt
	})
	rep := Report{Kept: len(kept), Removed: len(ordered) - len(kept)}
	if dryRun || rep.Removed == 0 {
		return rep, nil
	}
	sections := make(map[string]store.Section, len(kept))
	var order []string
	for i, sec := range ordered {
		if kept[i] {
			sections[sec.ID] = sec
			order = append(order, sec.ID)
		}
	}
	doc.Sections = sections
	doc.Order = order
	return rep, s.Save(doc)
}
