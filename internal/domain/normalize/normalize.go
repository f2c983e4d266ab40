// Package normalize holds the shared normalization rules every lookup key
// goes through. Matching only works because both sides of a pair are
// normalized with exactly the same functions, so these live in one place.
package normalize

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes accented runes and drops the combining marks,
// so "Ibáñez" and "Ibanez" normalize to the same key.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name normalizes a customer or payer name for index lookups:
// lower-case, diacritics stripped, non-alphanumerics removed,
// whitespace collapsed to single spaces.
func Name(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// OrderID normalizes an order identifier. Composite ids embed a hash prefix
// followed by a sequence number ("abc1234-5"); both sides are reduced to the
// prefix so they land on the same key.
func OrderID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) > 8 && strings.Contains(s, "-") {
		s = s[:strings.Index(s, "-")]
	}
	return s
}

// Email lower-cases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailDomain returns the domain part of an email address, or "" when the
// value does not look like an address.
func EmailDomain(s string) string {
	s = Email(s)
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return ""
	}
	return s[at+1:]
}

// AmountBucket buckets an amount to its absolute integer currency unit,
// the key used by the rounded-amount candidate index.
func AmountBucket(amount decimal.Decimal) int64 {
	return amount.Abs().Round(0).IntPart()
}

// DayDiff returns the whole-day difference between two instants, ignoring
// the time-of-day component. Settlement lag and timezone noise make raw
// timestamp comparison useless for matching.
func DayDiff(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(ad.Sub(bd).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}

// DescriptionPrefix reduces a ledger-line description to a comparable key
// prefix: lower-case, whitespace collapsed, truncated to n runes.
func DescriptionPrefix(s string, n int) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
