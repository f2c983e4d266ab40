package matcher

import (
	"github.com/shopspring/decimal"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/index"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

// Strategy names, in the order the cascade tries them. A source enables a
// subset of these depending on which join keys its records reliably carry.
const (
	StrategyOrderID          = "order-id"
	StrategyEmailAmount      = "email+amount"
	StrategyDomainAmountDate = "domain+amount+date"
	StrategyPayerName        = "payer-name"
	StrategyAmountDate       = "amount+date"
)

// Confidence per strategy, 0-100. Only the explicit order-id join earns 100;
// everything below it is fuzzy to some degree and labeled as such.
const (
	confidenceOrderID          = 100
	confidenceEmailAmount      = 90
	confidenceDomainAmountDate = 75
	confidencePayerName        = 70
	confidenceAmountDate       = 50
)

// Config holds the cascade tolerances. Monetary equality is always
// evaluated against an explicit tolerance, never exact float equality.
type Config struct {
	// AmountTolerance applies to every fuzzy strategy (currency units).
	AmountTolerance decimal.Decimal
	// OrderIDTolerance verifies the order-id join; effectively exact.
	OrderIDTolerance decimal.Decimal
	// DomainDateWindowDays bounds the domain+amount+date strategy.
	DomainDateWindowDays int
	// WideDateWindowDays bounds the payer-name and amount+date strategies.
	WideDateWindowDays int
}

// DefaultConfig returns the tolerances the production runs use.
func DefaultConfig() Config {
	return Config{
		AmountTolerance:      decimal.RequireFromString("1.0"),
		OrderIDTolerance:     decimal.RequireFromString("0.01"),
		DomainDateWindowDays: 3,
		WideDateWindowDays:   7,
	}
}

// Strategy is one rung of the cascade. Implementations look a transaction
// up in the candidate index and return the first acceptable invoice that
// the taken set has not already claimed, plus human-readable reasons.
type Strategy interface {
	Name() string
	Confidence() int
	Match(tx *record.Transaction, idx *index.Candidates, taken func(invoiceID string) bool) (*record.Invoice, []string)
}

// Outcome is the result of one cascade run.
type Outcome struct {
	Matches     []record.Match
	Unmatched   []*record.Transaction
	PerStrategy map[string]int
	// Buckets counts unextractable bank narrations by heuristic category,
	// for reporting only. Populated when the payer-name strategy is active.
	Buckets           map[string]int
	SkippedReconciled int
}

// MatchedAmount sums the absolute transaction amounts of accepted matches.
func (o *Outcome) MatchedAmount(byID map[string]*record.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, m := range o.Matches {
		if tx, ok := byID[m.TransactionID]; ok {
			total = total.Add(tx.Amount.Abs())
		}
	}
	return total
}
