package recon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/config"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/storage"
)

// writer persists accepted matches in bounded-concurrency chunks. One
// failed write never aborts the run; it is captured and the rest of the
// chunk proceeds.
type writer struct {
	store       storage.TransactionRepository
	logger      *slog.Logger
	batchSize   int
	concurrency int
	tolerance   decimal.Decimal
}

func newWriter(store storage.TransactionRepository, rc config.ReconcileConfig, tolerance decimal.Decimal, logger *slog.Logger) *writer {
	batchSize := rc.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	concurrency := rc.WriteConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &writer{
		store:       store,
		logger:      logger,
		batchSize:   batchSize,
		concurrency: concurrency,
		tolerance:   tolerance,
	}
}

// apply writes the match set. Returns the number of matches actually
// persisted and the per-item errors. Dry runs validate but write nothing.
func (w *writer) apply(
	ctx context.Context,
	matches []record.Match,
	txByID map[string]*record.Transaction,
	invByID map[string]*record.Invoice,
	dryRun bool,
) (int, []error) {
	var (
		mu      sync.Mutex
		applied int
		errs    []error
	)

	for start := 0; start < len(matches); start += w.batchSize {
		end := start + w.batchSize
		if end > len(matches) {
			end = len(matches)
		}
		chunk := matches[start:end]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.concurrency)
		for _, m := range chunk {
			m := m
			g.Go(func() error {
				if err := w.applyOne(gctx, m, txByID, invByID, dryRun); err != nil {
					w.logger.Error("failed to apply match",
						"transaction_id", m.TransactionID,
						"invoice_id", m.InvoiceID,
						"error", err,
					)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					return nil
				}
				mu.Lock()
				applied++
				mu.Unlock()
				return nil
			})
		}
		// Goroutines swallow their own errors, so Wait only fails on a
		// cancelled context.
		if err := g.Wait(); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
	}

	return applied, errs
}

func (w *writer) applyOne(
	ctx context.Context,
	m record.Match,
	txByID map[string]*record.Transaction,
	invByID map[string]*record.Invoice,
	dryRun bool,
) error {
	tx, ok := txByID[m.TransactionID]
	if !ok {
		return fmt.Errorf("match references unknown transaction %s", m.TransactionID)
	}
	inv, ok := invByID[m.InvoiceID]
	if !ok {
		return fmt.Errorf("match references unknown invoice %s", m.InvoiceID)
	}

	// Last-line guard before writing: the pair must still agree on amount
	// within the widest cascade tolerance.
	diff := tx.Amount.Abs().Sub(inv.TotalAmount.Abs()).Abs()
	if diff.GreaterThan(w.tolerance) {
		return fmt.Errorf("match %s/%s amount drift %s exceeds tolerance %s",
			m.TransactionID, m.InvoiceID, diff.String(), w.tolerance.String())
	}

	if dryRun {
		w.logger.Debug("[DRY RUN] would reconcile",
			"transaction_id", m.TransactionID,
			"invoice_id", m.InvoiceID,
			"strategy", m.Strategy,
			"confidence", m.Confidence,
		)
		return nil
	}

	return w.store.ApplyMatch(ctx, m, time.Now().UTC())
}
