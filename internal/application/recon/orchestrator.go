package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/index"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/matcher"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/config"
)

const leaseName = "reconcile-writer"

// Run executes one reconciliation pass: load both datasets, build the
// candidate index, run each source's strategy cascade, and hand accepted
// matches to the writer. Dry runs do everything except write.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	mcfg, err := matcherConfig(o.cfg.Reconcile)
	if err != nil {
		return nil, err
	}

	sources, err := o.selectSources(opts.Source)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunUUID:       uuid.New().String(),
		DryRun:        !opts.Apply,
		PerStrategy:   make(map[string]int),
		Buckets:       make(map[string]int),
		MatchedAmount: decimal.Zero,
	}

	o.logger.Info("starting reconciliation",
		"run_uuid", result.RunUUID,
		"sources", len(sources),
		"dry_run", result.DryRun,
	)

	// Applying runs hold the single-writer lease so two overlapping runs
	// cannot both claim the same invoice before either commits.
	if opts.Apply {
		ttl := time.Duration(o.cfg.Reconcile.LeaseTTLSeconds) * time.Second
		ok, err := o.store.AcquireLease(ctx, leaseName, result.RunUUID, ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire writer lease: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("another reconciliation run holds the writer lease")
		}
		defer func() {
			if err := o.store.ReleaseLease(ctx, leaseName, result.RunUUID); err != nil {
				o.logger.Warn("failed to release writer lease", "error", err)
			}
		}()
	}

	runID, err := o.store.StartRun(ctx, result.RunUUID, "reconcile", opts.Source, result.DryRun)
	if err != nil {
		// Tracking failure should not block the run
		o.logger.Warn("failed to start run tracking", "error", err)
	}

	invoices, err := o.store.ListInvoices(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	result.InvoicesSeen = len(invoices)

	txByID := make(map[string]*record.Transaction)
	invByID := make(map[string]*record.Invoice, len(invoices))
	for _, inv := range invoices {
		invByID[inv.ID] = inv
	}

	// Invoices claimed by an earlier source in this run are withheld from
	// the index rebuilt for the next source.
	claimed := make(map[string]bool)

	for _, src := range sources {
		transactions, err := o.store.ListTransactions(ctx, src.Name, false)
		if err != nil {
			return nil, fmt.Errorf("load %s transactions: %w", src.Name, err)
		}
		if opts.TransactionID != "" {
			transactions = filterByID(transactions, opts.TransactionID)
		}
		result.TransactionsSeen += len(transactions)
		for _, tx := range transactions {
			txByID[tx.ID] = tx
		}

		cascade, err := matcher.New(mcfg, src.Strategies, o.logger)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}

		idx := index.Build(available(invoices, claimed))
		o.logger.Debug("built candidate index",
			"source", src.Name,
			"transactions", len(transactions),
			"index", idx.String(),
		)

		outcome := cascade.Run(transactions, idx)
		for _, m := range outcome.Matches {
			claimed[m.InvoiceID] = true
		}

		result.Matches = append(result.Matches, outcome.Matches...)
		result.Unmatched = append(result.Unmatched, outcome.Unmatched...)
		result.Skipped += outcome.SkippedReconciled
		for name, n := range outcome.PerStrategy {
			result.PerStrategy[name] += n
		}
		for bucket, n := range outcome.Buckets {
			result.Buckets[bucket] += n
		}
		result.MatchedAmount = result.MatchedAmount.Add(outcome.MatchedAmount(txByID))

		o.logger.Info("source matched",
			"source", src.Name,
			"matched", len(outcome.Matches),
			"unmatched", len(outcome.Unmatched),
			"skipped_reconciled", outcome.SkippedReconciled,
		)
	}
	result.Matched = len(result.Matches)

	w := newWriter(o.store, o.cfg.Reconcile, mcfg.AmountTolerance, o.logger)
	result.Applied, result.Errors = w.apply(ctx, result.Matches, txByID, invByID, result.DryRun)
	result.ErrorCount = len(result.Errors)

	if runID > 0 {
		err = o.store.CompleteRun(ctx, runID,
			result.TransactionsSeen, result.InvoicesSeen,
			result.Matched, result.Skipped, result.ErrorCount)
		if err != nil {
			o.logger.Warn("failed to complete run tracking", "error", err)
		}
	}

	o.logger.Info("reconciliation finished",
		"run_uuid", result.RunUUID,
		"matched", result.Matched,
		"applied", result.Applied,
		"unmatched", len(result.Unmatched),
		"errors", result.ErrorCount,
		"matched_amount", result.MatchedAmount.StringFixed(2),
	)

	return result, nil
}

// selectSources returns the configured sources to process, in config order
func (o *Orchestrator) selectSources(name string) ([]config.SourceConfig, error) {
	if name == "" {
		if len(o.cfg.Reconcile.Sources) == 0 {
			return nil, fmt.Errorf("no payment sources configured")
		}
		return o.cfg.Reconcile.Sources, nil
	}
	src, err := o.cfg.Source(name)
	if err != nil {
		return nil, err
	}
	return []config.SourceConfig{src}, nil
}

// matcherConfig parses the persisted tolerance strings into decimals
func matcherConfig(rc config.ReconcileConfig) (matcher.Config, error) {
	amountTol, err := decimal.NewFromString(rc.AmountTolerance)
	if err != nil {
		return matcher.Config{}, fmt.Errorf("invalid amount_tolerance %q: %w", rc.AmountTolerance, err)
	}
	orderTol, err := decimal.NewFromString(rc.OrderIDTolerance)
	if err != nil {
		return matcher.Config{}, fmt.Errorf("invalid order_id_tolerance %q: %w", rc.OrderIDTolerance, err)
	}
	return matcher.Config{
		AmountTolerance:      amountTol,
		OrderIDTolerance:     orderTol,
		DomainDateWindowDays: rc.DomainDateWindowDays,
		WideDateWindowDays:   rc.FallbackDateWindowDays,
	}, nil
}

func available(invoices []*record.Invoice, claimed map[string]bool) []*record.Invoice {
	if len(claimed) == 0 {
		return invoices
	}
	out := make([]*record.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if !claimed[inv.ID] {
			out = append(out, inv)
		}
	}
	return out
}

func filterByID(transactions []*record.Transaction, id string) []*record.Transaction {
	for _, tx := range transactions {
		if tx.ID == id {
			return []*record.Transaction{tx}
		}
	}
	return nil
}
