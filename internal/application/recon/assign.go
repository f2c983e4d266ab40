package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/ledgercode"
)

// AssignCodes runs the ledger-code resolution ladder over transactions
// that carry no financial account code yet. Votes are rebuilt from the
// full dataset each run, so a code assigned today can resolve differently
// after new invoices arrive; rows already coded are never touched.
func (o *Orchestrator) AssignCodes(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{
		RunUUID: uuid.New().String(),
		DryRun:  !opts.Apply,
	}

	o.logger.Info("starting account-code assignment",
		"run_uuid", result.RunUUID,
		"dry_run", result.DryRun,
	)

	// Applying runs share the writer lease with reconciliation: both
	// mutate transaction rows.
	if opts.Apply {
		ttl := time.Duration(o.cfg.Reconcile.LeaseTTLSeconds) * time.Second
		ok, err := o.store.AcquireLease(ctx, leaseName, result.RunUUID, ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire writer lease: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("another run holds the writer lease")
		}
		defer func() {
			if err := o.store.ReleaseLease(ctx, leaseName, result.RunUUID); err != nil {
				o.logger.Warn("failed to release writer lease", "error", err)
			}
		}()
	}

	runID, err := o.store.StartRun(ctx, result.RunUUID, "assign-fac", opts.Source, result.DryRun)
	if err != nil {
		o.logger.Warn("failed to start run tracking", "error", err)
	}

	invoices, err := o.store.ListInvoices(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	result.InvoicesSeen = len(invoices)

	transactions, err := o.store.ListTransactions(ctx, opts.Source, false)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	result.TransactionsSeen = len(transactions)

	votes := ledgercode.BuildVotes(invoices, transactions)

	for _, tx := range transactions {
		if tx.FinancialAccountCode != "" {
			result.Skipped++
			continue
		}

		assignment, ok := votes.Resolve(tx)
		if !ok {
			result.Unresolved++
			o.logger.Debug("no ladder rung produced a code",
				"transaction_id", tx.ID,
				"customer", tx.CustomerName,
			)
			continue
		}

		o.logger.Debug("resolved account code",
			"transaction_id", tx.ID,
			"code", assignment.Code,
			"provenance", assignment.Provenance,
		)

		if !result.DryRun {
			err := o.store.AssignAccountCode(ctx, tx.ID, assignment.Code, string(assignment.Provenance), assignment.AssignedAt)
			if err != nil {
				result.ErrorCount++
				result.Errors = append(result.Errors, fmt.Errorf("assign %s: %w", tx.ID, err))
				continue
			}
		}
		result.Assigned++
	}

	if runID > 0 {
		err = o.store.CompleteRun(ctx, runID,
			result.TransactionsSeen, result.InvoicesSeen,
			result.Assigned, result.Skipped, result.ErrorCount)
		if err != nil {
			o.logger.Warn("failed to complete run tracking", "error", err)
		}
	}

	o.logger.Info("account-code assignment finished",
		"run_uuid", result.RunUUID,
		"assigned", result.Assigned,
		"unresolved", result.Unresolved,
		"already_coded", result.Skipped,
		"errors", result.ErrorCount,
	)

	return result, nil
}
