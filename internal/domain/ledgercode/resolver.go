// Package ledgercode infers a financial account code (FAC) for gateway
// transactions that lack one, by frequency voting over the invoice history.
//
// The vote tables are built once per run from the invoices that do carry a
// code and are immutable afterwards; resolution never mutates shared state.
package ledgercode

import (
	"time"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/normalize"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

// Provenance records how a code was inferred, so later audits can separate
// confident inferences from defaults.
type Provenance string

const (
	ProvenanceCustomerName   Provenance = "customer-name"
	ProvenanceEmailDomain    Provenance = "email-domain"
	ProvenanceSourceDominant Provenance = "source-dominant"
)

// minDomainVotes guards the domain vote: a domain supported by a single
// observation is not trusted.
const minDomainVotes = 2

// Assignment is one resolved code with its provenance tag.
type Assignment struct {
	Code       string
	Provenance Provenance
	AssignedAt time.Time
}

// tally counts votes per code, keeping first-seen insertion order so ties
// break deterministically.
type tally struct {
	counts map[string]int
	order  []string
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(code string) {
	if _, seen := t.counts[code]; !seen {
		t.order = append(t.order, code)
	}
	t.counts[code]++
}

// winner returns the code with the highest count and that count.
// Ties go to the first-seen code.
func (t *tally) winner() (string, int) {
	best, bestCount := "", 0
	for _, code := range t.order {
		if t.counts[code] > bestCount {
			best, bestCount = code, t.counts[code]
		}
	}
	return best, bestCount
}

// Votes is the per-run frequency snapshot.
type Votes struct {
	byName   map[string]*tally
	byDomain map[string]*tally
	bySource map[string]*tally
	now      func() time.Time
}

// BuildVotes builds the vote tables from the invoice history and, for the
// source-dominant fallback, from transactions that already carry a code.
func BuildVotes(invoices []*record.Invoice, transactions []*record.Transaction) *Votes {
	v := &Votes{
		byName:   make(map[string]*tally),
		byDomain: make(map[string]*tally),
		bySource: make(map[string]*tally),
		now:      time.Now,
	}

	for _, inv := range invoices {
		if inv == nil || inv.FinancialAccountCode == "" {
			continue
		}
		if name := normalize.Name(inv.CustomerName); name != "" {
			v.tallyFor(v.byName, name).add(inv.FinancialAccountCode)
		}
		if domain := normalize.EmailDomain(inv.CustomerEmail); domain != "" {
			v.tallyFor(v.byDomain, domain).add(inv.FinancialAccountCode)
		}
	}

	for _, tx := range transactions {
		if tx == nil || tx.FinancialAccountCode == "" || tx.Source == "" {
			continue
		}
		v.tallyFor(v.bySource, tx.Source).add(tx.FinancialAccountCode)
	}

	return v
}

func (v *Votes) tallyFor(m map[string]*tally, key string) *tally {
	t, ok := m[key]
	if !ok {
		t = newTally()
		m[key] = t
	}
	return t
}

// ResolveName returns the majority code for a customer name, if any.
func (v *Votes) ResolveName(customerName string) (string, bool) {
	t, ok := v.byName[normalize.Name(customerName)]
	if !ok {
		return "", false
	}
	code, n := t.winner()
	return code, n > 0
}

// ResolveDomain returns the majority code for an email domain, but only
// when the winning count reaches the vote floor.
func (v *Votes) ResolveDomain(email string) (string, bool) {
	t, ok := v.byDomain[normalize.EmailDomain(email)]
	if !ok {
		return "", false
	}
	code, n := t.winner()
	if n < minDomainVotes {
		return "", false
	}
	return code, true
}

// ResolveSource returns the single most frequent code across the already
// coded transactions of a source.
func (v *Votes) ResolveSource(source string) (string, bool) {
	t, ok := v.bySource[source]
	if !ok {
		return "", false
	}
	code, n := t.winner()
	return code, n > 0
}

// Resolve runs the full resolution ladder for one transaction:
// customer name majority, then domain majority, then the source-dominant
// default. ok is false when every rung comes up empty.
func (v *Votes) Resolve(tx *record.Transaction) (Assignment, bool) {
	if code, ok := v.ResolveName(tx.CustomerName); ok {
		return Assignment{Code: code, Provenance: ProvenanceCustomerName, AssignedAt: v.now()}, true
	}
	if code, ok := v.ResolveDomain(tx.CustomerEmail); ok {
		return Assignment{Code: code, Provenance: ProvenanceEmailDomain, AssignedAt: v.now()}, true
	}
	if code, ok := v.ResolveSource(tx.Source); ok {
		return Assignment{Code: code, Provenance: ProvenanceSourceDominant, AssignedAt: v.now()}, true
	}
	return Assignment{}, false
}
