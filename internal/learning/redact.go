package learning

import "regexp"

// Built-in redaction catalog, applied after policy masking. Order is the
// contract: digit-run rules go first so a credit card is not half-eaten
// by the phone rule, and URLs go last so emails inside links are already
// tokenized.
type builtinRule struct {
	category string
	re       *regexp.Regexp
}

var builtinRules = []builtinRule{
	{"CREDIT_CARD", regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{"GOV_ID", regexp.MustCompile(`\b\d{6}-\d{4}\b`)},
	{"EMAIL", regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{"PHONE", regexp.MustCompile(`\+?\d{2}[ ]?\d{2}[ ]?\d{2}[ ]?\d{2}(?:[ ]?\d{2})?`)},
	{"URL", regexp.MustCompile(`https?://[^\s"']+`)},
}

// redactBuiltin applies the fixed catalog to one string.
func redactBuiltin(s string) string {
	for _, rule := range builtinRules {
		s = rule.re.ReplaceAllString(s, "[REDACTED_"+rule.category+"]")
	}
	return s
}

// maskedFields are the record fields whose string leaves get both the
// policy masking rules and the built-in catalog.
var maskedFields = map[string]bool{
	"user_text":        true,
	"response_text":    true,
	"response_summary": true,
	"entities":         true,
	"parser_payload":   true,
	"tool_payload":     true,
	"tool_result":      true,
	"metadata":         true,
	"extras":           true,
	"reason":           true,
}

// Masker is the slice of the policy the logger needs.
type Masker interface {
	MaskPII(value string) string
	Version() string
}

// redactValue walks v and rewrites every string leaf through the policy
// masker and the built-in catalog.
func redactValue(v any, m Masker) any {
	switch val := v.(type) {
	case string:
		return redactBuiltin(m.MaskPII(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = redactValue(inner, m)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redactValue(inner, m)
		}
		return out
	default:
		return v
	}
}

// redactRecord applies redaction to the configured fields of a record
// already decoded into a generic map.
func redactRecord(rec map[string]any, m Masker) {
	for field := range maskedFields {
		if v, ok := rec[field]; ok {
			rec[field] = redactValue(v, m)
		}
	}
}
