// Package policy loads the versioned governance document and answers the
// per-turn questions the orchestrator and logger ask of it: which tools
// and models are allowed, how many entries each retention bucket keeps,
// and how PII is masked before anything reaches disk.
package policy

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrToolNotAllowed is returned by EnsureToolAllowed for tools outside
// the policy's allow-list.
var ErrToolNotAllowed = errors.New("tool not allowed by policy")

// Known retention buckets.
const (
	BucketTurnLogs         = "turn_logs"
	BucketPendingQueue     = "pending_queue"
	BucketCorrectedPrompts = "corrected_prompts"
	BucketToolStores       = "tool_stores"
)

// ReviewerRole describes one reviewer entry from the policy document.
type ReviewerRole struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

// PIIRule is one masking rule: every match of the compiled pattern is
// replaced with the replacement token. Rules apply in document order.
type PIIRule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`

	re *regexp.Regexp
}

type document struct {
	PolicyVersion       string         `yaml:"policy_version"`
	AllowedModels       []string       `yaml:"allowed_models"`
	AllowedTools        []string       `yaml:"allowed_tools"`
	RetentionMaxEntries map[string]int `yaml:"retention_max_entries"`
	ReviewerRoles       []ReviewerRole `yaml:"reviewer_roles"`
	PIIRules            []PIIRule      `yaml:"pii_rules"`
}

// Policy is a loaded, validated governance document. All allow-list
// lookups are case-insensitive.
type Policy struct {
	version       string
	allowedModels map[string]bool
	allowedTools  map[string]bool
	retention     map[string]int
	reviewerRoles []ReviewerRole
	piiRules      []PIIRule
}

// Load reads and validates a policy YAML file.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	return Parse(data)
}

// Parse validates a policy document from raw YAML bytes.
func Parse(data []byte) (*Policy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing policy: %w", err)
	}
	if doc.PolicyVersion == "" {
		return nil, fmt.Errorf("policy is missing policy_version")
	}
	for bucket, limit := range doc.RetentionMaxEntries {
		if limit < 0 {
			return nil, fmt.Errorf("retention_max_entries[%s] is negative: %d", bucket, limit)
		}
	}
	for i := range doc.PIIRules {
		re, err := regexp.Compile(doc.PIIRules[i].Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling pii_rules[%d] pattern %q: %w", i, doc.PIIRules[i].Pattern, err)
		}
		doc.PIIRules[i].re = re
	}

	p := &Policy{
		version:       doc.PolicyVersion,
		allowedModels: lowerSet(doc.AllowedModels),
		allowedTools:  lowerSet(doc.AllowedTools),
		retention:     doc.RetentionMaxEntries,
		reviewerRoles: doc.ReviewerRoles,
		piiRules:      doc.PIIRules,
	}
	return p, nil
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}

// Version returns the opaque policy version stamped on every log record.
func (p *Policy) Version() string { return p.version }

// IsToolAllowed reports whether the named tool is on the allow-list.
func (p *Policy) IsToolAllowed(name string) bool {
	return p.allowedTools[strings.ToLower(name)]
}

// IsModelAllowed reports whether the named model is on the allow-list.
func (p *Policy) IsModelAllowed(name string) bool {
	return p.allowedModels[strings.ToLower(name)]
}

// EnsureToolAllowed returns ErrToolNotAllowed (wrapped with the tool name
// and policy version) when the tool is outside the allow-list.
func (p *Policy) EnsureToolAllowed(name string) error {
	if p.IsToolAllowed(name) {
		return nil
	}
	return fmt.Errorf("%w: %q (policy %s)", ErrToolNotAllowed, name, p.version)
}

// AllowedTools returns the allow-listed tool names, lowercased and sorted.
func (p *Policy) AllowedTools() []string {
	out := make([]string, 0, len(p.allowedTools))
	for name := range p.allowedTools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RetentionLimit returns the entry cap for a bucket. ok is false when the
// bucket is not configured, in which case nothing is purged.
func (p *Policy) RetentionLimit(bucket string) (int, bool) {
	limit, ok := p.retention[bucket]
	return limit, ok
}

// ReviewerRoles returns the reviewer role entries as configured.
func (p *Policy) ReviewerRoles() []ReviewerRole {
	return p.reviewerRoles
}

// MaskPII applies every masking rule to value, in document order.
func (p *Policy) MaskPII(value string) string {
	for _, rule := range p.piiRules {
		value = rule.re.ReplaceAllString(value, rule.Replacement)
	}
	return value
}
