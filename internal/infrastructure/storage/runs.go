package storage

import (
	"context"
	"database/sql"
	"time"
)

// StartRun records the start of a batch run and returns its row id
func (s *Store) StartRun(ctx context.Context, runUUID, kind, source string, dryRun bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recon_runs (run_uuid, kind, source, dry_run, status)
		VALUES (?, ?, ?, ?, 'running')`,
		runUUID, kind, source, dryRun)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CompleteRun records the completion of a batch run
func (s *Store) CompleteRun(ctx context.Context, runID int64, transactionsSeen, invoicesSeen, matched, skipped, errors int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE recon_runs
		SET completed_at = CURRENT_TIMESTAMP,
		    transactions_seen = ?,
		    invoices_seen = ?,
		    matched = ?,
		    skipped = ?,
		    errors = ?,
		    status = CASE WHEN ? > 0 THEN 'completed_with_errors' ELSE 'completed' END
		WHERE id = ?`,
		transactionsSeen, invoicesSeen, matched, skipped, errors, errors, runID)
	return err
}

// ListRuns returns recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ReconRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_uuid, kind, source, started_at, completed_at, dry_run,
		       transactions_seen, invoices_seen, matched, skipped, errors, status
		FROM recon_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []ReconRun
	for rows.Next() {
		var (
			run         ReconRun
			completedAt sql.NullTime
		)
		err := rows.Scan(
			&run.ID,
			&run.RunUUID,
			&run.Kind,
			&run.Source,
			&run.StartedAt,
			&completedAt,
			&run.DryRun,
			&run.TransactionsSeen,
			&run.InvoicesSeen,
			&run.Matched,
			&run.Skipped,
			&run.Errors,
			&run.Status,
		)
		if err != nil {
			return nil, err
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// SaveCorrection stores one repaired ledger line for audit
func (s *Store) SaveCorrection(ctx context.Context, c *Correction) error {
	if c.CorrectedAt.IsZero() {
		c.CorrectedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO corrections (run_id, account_code, transaction_id, mismatch, old_amount, new_amount, corrected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.AccountCode, c.TransactionID, c.Mismatch, c.OldAmount, c.NewAmount, c.CorrectedAt)
	if err != nil {
		return err
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

// ListCorrections returns recent corrections, newest first
func (s *Store) ListCorrections(ctx context.Context, limit int) ([]Correction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, account_code, transaction_id, mismatch, old_amount, new_amount, corrected_at
		FROM corrections
		ORDER BY corrected_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Correction
	for rows.Next() {
		var c Correction
		err := rows.Scan(&c.ID, &c.RunID, &c.AccountCode, &c.TransactionID, &c.Mismatch, &c.OldAmount, &c.NewAmount, &c.CorrectedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// GetStats summarizes the reconciliation state
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		PerStrategy: make(map[string]int),
		PerSource:   make(map[string]SourceStats),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN reconciled = 1 THEN 1 END)
		FROM transactions`).Scan(&stats.Transactions, &stats.ReconciledTransactions)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN reconciled = 1 THEN 1 END)
		FROM invoices`).Scan(&stats.Invoices, &stats.ReconciledInvoices)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT match_type, COUNT(*)
		FROM transactions
		WHERE reconciled = 1 AND match_type != ''
		GROUP BY match_type`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var strategy string
		var n int
		if err := rows.Scan(&strategy, &n); err != nil {
			return nil, err
		}
		stats.PerStrategy[strategy] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srcRows, err := s.db.QueryContext(ctx, `
		SELECT source,
		       COUNT(*),
		       COUNT(CASE WHEN reconciled = 1 THEN 1 END)
		FROM transactions
		GROUP BY source`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = srcRows.Close() }()
	for srcRows.Next() {
		var source string
		var ss SourceStats
		if err := srcRows.Scan(&source, &ss.Count, &ss.Reconciled); err != nil {
			return nil, err
		}
		stats.PerSource[source] = ss
	}
	if err := srcRows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
