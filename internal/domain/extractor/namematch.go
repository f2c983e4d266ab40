package extractor

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/index"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/normalize"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

// minContainmentLen bounds false positives on short tokens: containment
// matching is only attempted for normalized names of at least 5 characters.
const minContainmentLen = 5

// MatchName resolves an extracted payer name against the customer-name
// index. Exact equality on the normalized name wins outright; otherwise
// mutual substring containment is tried, and when several names contain
// (or are contained by) the extracted one, the candidates are ranked by
// Levenshtein distance so the closest name wins instead of the first one
// in iteration order.
func MatchName(payerName string, idx *index.Candidates) []*record.Invoice {
	name := normalize.Name(payerName)
	if name == "" {
		return nil
	}

	if hits := idx.ByName(name); len(hits) > 0 {
		return hits
	}

	if len(name) < minContainmentLen {
		return nil
	}

	bestKey := ""
	bestDist := -1
	for _, key := range idx.NameKeys() {
		if !contains(name, key) {
			continue
		}
		d := levenshtein.DistanceForStrings([]rune(name), []rune(key), levenshtein.DefaultOptions)
		if bestDist < 0 || d < bestDist {
			bestKey, bestDist = key, d
		}
	}
	if bestKey == "" {
		return nil
	}
	return idx.ByName(bestKey)
}

// contains reports mutual substring containment of two normalized names.
func contains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
