// Package matcher implements the match strategy cascade: for each
// unmatched transaction the enabled strategies run in fixed order and the
// first success wins. An accepted match claims both ids for the remainder
// of the run, so no invoice or transaction is ever matched twice.
//
// When several candidates equally satisfy a fuzzy predicate, the first
// unclaimed one in iteration order is taken. That is a known source of
// possible mis-assignment on dense datasets; the payer-name strategy is
// the one rung that ranks its candidates explicitly.
package matcher

import (
	"fmt"
	"log/slog"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/extractor"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/index"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

// Cascade runs an ordered strategy list over unmatched transactions.
type Cascade struct {
	strategies []Strategy
	logger     *slog.Logger
	bucketing  bool
}

// New builds a cascade from strategy names in the given order. Unknown
// names are rejected so a typo in config fails the run setup instead of
// silently skipping a rung.
func New(cfg Config, strategyNames []string, logger *slog.Logger) (*Cascade, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(strategyNames) == 0 {
		return nil, fmt.Errorf("no strategies configured")
	}

	c := &Cascade{logger: logger}
	for _, name := range strategyNames {
		switch name {
		case StrategyOrderID:
			c.strategies = append(c.strategies, &orderIDStrategy{cfg})
		case StrategyEmailAmount:
			c.strategies = append(c.strategies, &emailAmountStrategy{cfg})
		case StrategyDomainAmountDate:
			c.strategies = append(c.strategies, &domainAmountDateStrategy{cfg})
		case StrategyPayerName:
			c.strategies = append(c.strategies, &payerNameStrategy{cfg})
			c.bucketing = true
		case StrategyAmountDate:
			c.strategies = append(c.strategies, &amountDateStrategy{cfg})
		default:
			return nil, fmt.Errorf("unknown match strategy %q", name)
		}
	}
	return c, nil
}

// Run matches every unreconciled transaction against the candidate index.
// The run is pure: records are not mutated, so running twice over the same
// inputs yields the identical match set.
func (c *Cascade) Run(transactions []*record.Transaction, idx *index.Candidates) *Outcome {
	out := &Outcome{
		PerStrategy: make(map[string]int),
		Buckets:     make(map[string]int),
	}

	claimedInvoices := make(map[string]bool)
	taken := func(invoiceID string) bool { return claimedInvoices[invoiceID] }

	for _, tx := range transactions {
		if tx == nil {
			continue
		}
		if tx.Reconciled {
			out.SkippedReconciled++
			continue
		}

		matched := false
		for _, s := range c.strategies {
			inv, reasons := s.Match(tx, idx, taken)
			if inv == nil {
				continue
			}

			claimedInvoices[inv.ID] = true
			// Transient in-run state; the writer flips it to reconciled
			// on commit, and an unapplied dry run never persists it.
			tx.Status = record.StatusMatched
			out.Matches = append(out.Matches, record.Match{
				TransactionID: tx.ID,
				InvoiceID:     inv.ID,
				Strategy:      s.Name(),
				Confidence:    s.Confidence(),
				Reasons:       reasons,
			})
			out.PerStrategy[s.Name()]++
			matched = true

			c.logger.Debug("accepted match",
				"transaction_id", tx.ID,
				"invoice_id", inv.ID,
				"strategy", s.Name(),
				"confidence", s.Confidence(),
			)
			break
		}

		if !matched {
			out.Unmatched = append(out.Unmatched, tx)
			if c.bucketing {
				if _, _, ok := extractor.ExtractPayerName(tx.Description); !ok {
					out.Buckets[extractor.Category(tx.Description)]++
				}
			}
		}
	}

	return out
}
