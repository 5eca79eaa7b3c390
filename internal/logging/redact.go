package logging

import (
	"sort"
	"strings"
)

// Redacted replaces sensitive values in logged parameters.
const Redacted = "[REDACTED]"

// baseSensitiveKeys are redacted wherever they appear in a parameter bag.
var baseSensitiveKeys = []string{"api_key", "password", "password2", "username"}

// sensitiveSubstrings mark any key containing them as sensitive.
var sensitiveSubstrings = []string{"password", "secret"}

// Redactor masks sensitive fields of a decoded parameter bag before it is
// logged.
type Redactor struct {
	keys map[string]struct{}
}

// NewRedactor returns a Redactor masking the base sensitive keys plus extra,
// typically the shadow username field name.
func NewRedactor(extra ...string) *Redactor {
	keys := make(map[string]struct{}, len(baseSensitiveKeys)+len(extra))
	for _, k := range baseSensitiveKeys {
		keys[k] = struct{}{}
	}
	for _, k := range extra {
		if k != "" {
			keys[strings.ToLower(k)] = struct{}{}
		}
	}
	return &Redactor{keys: keys}
}

// IsSensitive reports whether values under key must not be logged.
func (r *Redactor) IsSensitive(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := r.keys[lower]; ok {
		return true
	}
	for _, sub := range sensitiveSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// Redact returns a deep copy of params with sensitive values replaced by
// Redacted. The input is not modified.
func (r *Redactor) Redact(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if r.IsSensitive(k) {
			out[k] = Redacted
			continue
		}
		out[k] = r.redactValue(v)
	}
	return out
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return r.Redact(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return r.Redact(m)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = r.redactValue(item)
		}
		return items
	default:
		return v
	}
}

// minScrubLength keeps very short values, which would mangle unrelated
// text, out of Scrub.
const minScrubLength = 4

// SensitiveValues returns the string values stored under sensitive keys of
// params, at any depth.
func (r *Redactor) SensitiveValues(params map[string]any) []string {
	var values []string
	r.collect(params, false, &values)
	return values
}

func (r *Redactor) collect(v any, sensitive bool, out *[]string) {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			r.collect(item, sensitive || r.IsSensitive(k), out)
		}
	case []any:
		for _, item := range val {
			r.collect(item, sensitive, out)
		}
	case string:
		if sensitive && len(val) >= minScrubLength {
			*out = append(*out, val)
		}
	}
}

// Scrub replaces every occurrence of values in s with Redacted. Longer
// values are replaced first so a value containing another is fully masked.
func Scrub(s string, values []string) string {
	sorted := append([]string(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, v := range sorted {
		if len(v) >= minScrubLength {
			s = strings.ReplaceAll(s, v, Redacted)
		}
	}
	return s
}

// Mask returns Redacted for a non-empty value, so a log line records that
// the value was present without revealing it.
func Mask(v string) string {
	if v == "" {
		return ""
	}
	return Redacted
}
