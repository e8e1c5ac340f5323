package policy

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const samplePolicy = `
policy_version: "2026-06"
allowed_models:
  - gpt-4o-mini
allowed_tools:
  - todo_list
  - Weather
retention_max_entries:
  turn_logs: 500
  tool_stores: 100
reviewer_roles:
  - id: lead
    name: Review Lead
    permissions: [approve, reject]
pii_rules:
  - pattern: 'secret-\d+'
    replacement: '[MASKED]'
`

func mustParse(t *testing.T, data string) *Policy {
	t.Helper()
	p, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestParseValid(t *testing.T) {
	p := mustParse(t, samplePolicy)
	if p.Version() != "2026-06" {
		t.Errorf("Version = %q", p.Version())
	}
	if got := p.AllowedTools(); !reflect.DeepEqual(got, []string{"todo_list", "weather"}) {
		t.Errorf("AllowedTools = %v", got)
	}
	roles := p.ReviewerRoles()
	if len(roles) != 1 || roles[0].ID != "lead" || len(roles[0].Permissions) != 2 {
		t.Errorf("ReviewerRoles = %+v", roles)
	}
}

func TestParseMissingVersion(t *testing.T) {
	if _, err := Parse([]byte("allowed_tools: [todo_list]")); err == nil {
		t.Fatal("expected error for missing policy_version")
	}
}

func TestParseNegativeRetention(t *testing.T) {
	doc := "policy_version: v1\nretention_max_entries:\n  turn_logs: -1\n"
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected error for negative retention")
	}
}

func TestParseBadPIIPattern(t *testing.T) {
	doc := "policy_version: v1\npii_rules:\n  - pattern: '['\n    replacement: x\n"
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected error for invalid regex")
	}
}

func TestAllowListsCaseInsensitive(t *testing.T) {
	p := mustParse(t, samplePolicy)
	if !p.IsToolAllowed("TODO_LIST") {
		t.Error("expected case-insensitive tool match")
	}
	if !p.IsToolAllowed("weather") {
		t.Error("expected lowercased entry to match")
	}
	if p.IsToolAllowed("calendar") {
		t.Error("calendar should not be allowed")
	}
	if !p.IsModelAllowed("GPT-4O-MINI") {
		t.Error("expected case-insensitive model match")
	}
}

func TestEnsureToolAllowed(t *testing.T) {
	p := mustParse(t, samplePolicy)
	if err := p.EnsureToolAllowed("todo_list"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := p.EnsureToolAllowed("calendar")
	if !errors.Is(err, ErrToolNotAllowed) {
		t.Errorf("expected ErrToolNotAllowed, got %v", err)
	}
}

func TestRetentionLimit(t *testing.T) {
	p := mustParse(t, samplePolicy)
	if limit, ok := p.RetentionLimit(BucketTurnLogs); !ok || limit != 500 {
		t.Errorf("turn_logs = %d, %v", limit, ok)
	}
	if _, ok := p.RetentionLimit(BucketPendingQueue); ok {
		t.Error("pending_queue should be unconfigured")
	}
}

func TestMaskPIIOrdered(t *testing.T) {
	doc := `
policy_version: v1
pii_rules:
  - pattern: 'secret-\d+'
    replacement: '[S]'
  - pattern: '\[S\] extra'
    replacement: '[SE]'
`
	p := mustParse(t, doc)
	if got := p.MaskPII("see secret-42 extra"); got != "see [SE]" {
		t.Errorf("MaskPII = %q, want rules applied in order", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(samplePolicy), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Version() != "2026-06" {
		t.Errorf("Version = %q", p.Version())
	}
}
