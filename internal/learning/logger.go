// Package learning emits the two append-only JSONL audit streams: the
// full turn log and the review queue. Every record is PII-masked in line
// before it reaches disk, and each stream rotates by size.
package learning

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// TurnRecord is the serialized form of one completed turn.
type TurnRecord struct {
	TurnID            string         `json:"turn_id"`
	Timestamp         string         `json:"timestamp"`
	UserText          string         `json:"user_text"`
	Intent            string         `json:"nlu_intent"`
	Confidence        float64        `json:"confidence"`
	InvocationSource  string         `json:"invocation_source"`
	ToolName          string         `json:"tool_name,omitempty"`
	ToolPayload       map[string]any `json:"tool_payload,omitempty"`
	ToolResult        map[string]any `json:"tool_result,omitempty"`
	ToolSuccess       bool           `json:"tool_success"`
	ResolutionStatus  string         `json:"resolution_status"`
	ResponseText      string         `json:"response_text"`
	LatencyMS         int64          `json:"latency_ms"`
	FallbackTriggered bool           `json:"fallback_triggered"`
	ReviewReason      string         `json:"review_reason,omitempty"`
	PolicyVersion     string         `json:"policy_version"`
	Extras            map[string]any `json:"extras,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// ReviewRecord is the review-queue subset of a turn.
type ReviewRecord struct {
	PromptID      string         `json:"prompt_id"`
	Timestamp     string         `json:"timestamp"`
	UserText      string         `json:"user_text"`
	Intent        string         `json:"intent"`
	Confidence    float64        `json:"confidence"`
	Reason        string         `json:"reason"`
	ToolName      string         `json:"tool_name,omitempty"`
	ParserPayload map[string]any `json:"parser_payload,omitempty"`
	PolicyVersion string         `json:"policy_version"`
	Extras        map[string]any `json:"extras,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Options bounds a stream file.
type Options struct {
	MaxBytes    int64
	BackupCount int
}

// DefaultOptions rotates at 5 MiB keeping 3 backups.
var DefaultOptions = Options{MaxBytes: 5 << 20, BackupCount: 3}

// Logger writes the turn and review streams. Append+rotate is indivisible
// under the per-logger mutex; a record is either fully written or absent.
type Logger struct {
	mu         sync.Mutex
	turnPath   string
	reviewPath string
	opts       Options
	masker     Masker

	writeErrors atomic.Uint64
}

// NewLogger creates a logger for the two stream paths.
func NewLogger(turnPath, reviewPath string, masker Masker, opts Options) *Logger {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultOptions.MaxBytes
	}
	if opts.BackupCount < 0 {
		opts.BackupCount = 0
	}
	return &Logger{turnPath: turnPath, reviewPath: reviewPath, opts: opts, masker: masker}
}

// TurnPath returns the turn stream path.
func (l *Logger) TurnPath() string { return l.turnPath }

// ReviewPath returns the review stream path.
func (l *Logger) ReviewPath() string { return l.reviewPath }

// WriteErrors returns the count of failed appends. Logger failures never
// block a response; callers poll this for observability.
func (l *Logger) WriteErrors() uint64 { return l.writeErrors.Load() }

// LogTurn redacts and appends one turn record.
func (l *Logger) LogTurn(rec TurnRecord) error {
	if rec.PolicyVersion == "" {
		rec.PolicyVersion = l.masker.Version()
	}
	return l.append(l.turnPath, rec)
}

// LogReview redacts and appends one review record.
func (l *Logger) LogReview(rec ReviewRecord) error {
	if rec.PolicyVersion == "" {
		rec.PolicyVersion = l.masker.Version()
	}
	return l.append(l.reviewPath, rec)
}

func (l *Logger) append(path string, rec any) error {
	line, err := encodeRedacted(rec, l.masker)
	if err != nil {
		l.writeErrors.Add(1)
		return err
	}
	// A record that alone exceeds the bound would leave the fresh file
	// oversized after rotation; refuse it instead.
	if int64(len(line)) > l.opts.MaxBytes {
		l.writeErrors.Add(1)
		return fmt.Errorf("record of %d bytes exceeds the %d byte stream limit", len(line), l.opts.MaxBytes)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(path, int64(len(line))); err != nil {
		l.writeErrors.Add(1)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.writeErrors.Add(1)
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.writeErrors.Add(1)
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		l.writeErrors.Add(1)
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}

// encodeRedacted round-trips the record through a generic map so the
// masking pass sees every string leaf, then encodes one JSON line.
func encodeRedacted(rec any, m Masker) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decoding record for redaction: %w", err)
	}
	redactRecord(generic, m)
	line, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encoding redacted record: %w", err)
	}
	return append(line, '\n'), nil
}

// rotateIfNeeded rotates path when appending lineLen bytes would push it
// over MaxBytes: backups shift file.N -> file.N+1 (lower index = newer),
// the live file becomes file.1 and a fresh file starts. With zero backups
// the live file is truncated instead.
func (l *Logger) rotateIfNeeded(path string, lineLen int64) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size()+lineLen <= l.opts.MaxBytes {
		return nil
	}

	if l.opts.BackupCount == 0 {
		return os.Truncate(path, 0)
	}

	for n := l.opts.BackupCount - 1; n >= 1; n-- {
		src := fmt.Sprintf("%s.%d", path, n)
		if _, err := os.Stat(src); err == nil {
			if err := os.Rename(src, fmt.Sprintf("%s.%d", path, n+1)); err != nil {
				return fmt.Errorf("rotating %s: %w", src, err)
			}
		}
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("rotating %s: %w", path, err)
	}
	return nil
}

// ReadTail returns the last limit records of a JSONL stream, oldest
// first. limit <= 0 returns everything.
func ReadTail(path string, limit int) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		records = append(records, json.RawMessage(append([]byte(nil), line...)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}
