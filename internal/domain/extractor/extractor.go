// Package extractor parses free-text bank narrations into a payer name.
//
// Each known narration grammar is an ordered (pattern, capture) rule; the
// first rule that recognizes the text wins. Rows no rule recognizes are
// bucketed by heuristic category for reporting only, never for matching.
package extractor

import (
	"regexp"
	"strings"
)

// Rule recognizes one narration grammar and captures the payer name.
type Rule struct {
	Name    string
	pattern *regexp.Regexp
}

// rules are tried in order. Keep the more specific grammar before the more
// general one (Trans.inm/ before Trans/).
var rules = []Rule{
	{"transf", regexp.MustCompile(`(?i)^Transf/\s*(.+)$`)},
	{"trans-inm", regexp.MustCompile(`(?i)^Trans\.inm/\s*(.+)$`)},
	{"trans", regexp.MustCompile(`(?i)^Trans/\s*(.+)$`)},
	{"mxiso", regexp.MustCompile(`(?i)^Mxiso\s+(.+)$`)},
	// US-style wire narration: everything between ORIG CO NAME: and the
	// next label (ORIG ID:) or end of string.
	{"orig-co-name", regexp.MustCompile(`(?i)ORIG CO NAME:\s*(.*?)\s*(?:ORIG ID:|$)`)},
}

// Rules exposes the grammar list, mostly for reporting which grammars exist.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// ExtractPayerName runs the grammar rules against a narration and returns
// the captured payer name plus the rule that recognized it. ok is false for
// unextractable narrations.
func ExtractPayerName(description string) (name, rule string, ok bool) {
	desc := strings.TrimSpace(description)
	if desc == "" {
		return "", "", false
	}
	for _, r := range rules {
		if m := r.pattern.FindStringSubmatch(desc); m != nil {
			captured := strings.TrimSpace(m[1])
			if captured == "" {
				continue
			}
			return captured, r.Name, true
		}
	}
	return "", "", false
}

// Category buckets an unextractable narration for reporting. The buckets
// mirror the recurring settlement actors seen in the feeds.
func Category(description string) string {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "paypal"):
		return "paypal"
	case strings.Contains(desc, "amex") || strings.Contains(desc, "american express"):
		return "amex"
	case strings.Contains(desc, "remesa"):
		return "remesa"
	case strings.Contains(desc, "gocardless"):
		return "gocardless"
	case strings.Contains(desc, "stripe"):
		return "stripe"
	case strings.Contains(desc, "intercompany") || strings.Contains(desc, "interco"):
		return "intercompany"
	default:
		return "other"
	}
}
