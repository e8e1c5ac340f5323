// Package session tracks admin-surface sessions in memory and a call
// quota persisted to a JSON file. Both are process-local; no
// cross-process coordination is attempted.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mkrab/famulus/internal/store"
)

// ErrQuotaExceeded is returned when the remaining quota hits zero.
var ErrQuotaExceeded = errors.New("session: quota exceeded")

// Session is one admin-surface conversation.
type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
	Turns     int
}

// Manager owns the in-memory session map.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{sessions: map[string]*Session{}, now: time.Now}
}

// WithClock fixes the clock (tests).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Start creates a session and returns its ID.
func (m *Manager) Start() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := ulid.Make().String()
	t := m.now()
	m.sessions[id] = &Session{ID: id, CreatedAt: t, LastSeen: t}
	return id
}

// Touch bumps a session's turn counter. Unknown IDs start a fresh entry
// under the given ID so restarted clients keep working.
func (m *Manager) Touch(id string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = &Session{ID: id, CreatedAt: m.now()}
		m.sessions[id] = s
	}
	s.LastSeen = m.now()
	s.Turns++
	return *s
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle longer than maxIdle and reports how many
// were removed.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// quotaDoc is the on-disk shape of the counter file.
type quotaDoc struct {
	Limit int    `json:"limit"`
	Used  int    `json:"used"`
	Day   string `json:"day"`
}

// Quota is a daily call counter backed by a JSON file. The counter
// resets when the UTC day changes. All mutation is a read-modify-write
// under one mutex plus the store's atomic rename, so a call either
// consumes exactly one unit or fails without consuming any.
type Quota struct {
	mu    sync.Mutex
	path  string
	limit int
	now   func() time.Time
}

// NewQuota builds a counter; limit <= 0 means unlimited.
func NewQuota(path string, limit int) *Quota {
	return &Quota{path: path, limit: limit, now: time.Now}
}

// WithClock fixes the clock (tests).
func (q *Quota) WithClock(now func() time.Time) *Quota {
	q.now = now
	return q
}

func (q *Quota) day() string {
	return q.now().UTC().Format("2006-01-02")
}

func (q *Quota) load() (quotaDoc, error) {
	doc := quotaDoc{Limit: q.limit, Day: q.day()}
	if _, err := store.ReadFile(q.path, &doc); err != nil {
		return quotaDoc{}, err
	}
	doc.Limit = q.limit
	if doc.Day != q.day() {
		doc.Day = q.day()
		doc.Used = 0
	}
	return doc, nil
}

// Consume takes one unit or returns ErrQuotaExceeded. The file is only
// rewritten on a successful take.
func (q *Quota) Consume() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc, err := q.load()
	if err != nil {
		return fmt.Errorf("session: load quota: %w", err)
	}
	if q.limit > 0 && doc.Used >= q.limit {
		return ErrQuotaExceeded
	}
	doc.Used++
	if err := store.WriteFile(q.path, doc); err != nil {
		return fmt.Errorf("session: save quota: %w", err)
	}
	return nil
}

// Remaining reports units left today; -1 means unlimited.
func (q *Quota) Remaining() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit <= 0 {
		return -1, nil
	}
	doc, err := q.load()
	if err != nil {
		return 0, fmt.Errorf("session: load quota: %w", err)
	}
	left := q.limit - doc.Used
	if left < 0 {
		left = 0
	}
	return left, nil
}
