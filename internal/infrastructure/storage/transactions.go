package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

const transactionColumns = `id, source, date, amount, currency, description, status, reconciled,
	gateway_transaction_id, order_id, customer_name, customer_email, settlement_date,
	financial_account_code, matched_invoice_id, match_type, confidence, reconciled_at,
	fac_source, fac_assigned_at, extra_json`

// SaveTransaction inserts or replaces a transaction record
func (s *Store) SaveTransaction(ctx context.Context, tx *record.Transaction) error {
	extraJSON := ""
	if len(tx.Extra) > 0 {
		data, err := json.Marshal(tx.Extra)
		if err != nil {
			return fmt.Errorf("marshal extra for %s: %w", tx.ID, err)
		}
		extraJSON = string(data)
	}

	query := `
	INSERT OR REPLACE INTO transactions (` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.Source,
		tx.Date,
		tx.Amount.String(),
		tx.Currency,
		tx.Description,
		string(statusOrDefault(tx.Status)),
		tx.Reconciled,
		tx.GatewayTransactionID,
		tx.OrderID,
		tx.CustomerName,
		tx.CustomerEmail,
		tx.SettlementDate,
		tx.FinancialAccountCode,
		tx.MatchedInvoiceID,
		tx.MatchType,
		tx.Confidence,
		tx.ReconciledAt,
		tx.FACSource,
		tx.FACAssignedAt,
		extraJSON,
	)

	return err
}

func statusOrDefault(st record.Status) record.Status {
	if st == "" {
		return record.StatusUnmatched
	}
	return st
}

// GetTransaction retrieves one record by id, nil when the id is unknown
func (s *Store) GetTransaction(ctx context.Context, id string) (*record.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tx, err
}

// ListTransactions returns every record for a source, paginated internally.
// A fetch failure aborts the read loop; there is no partial silent success.
func (s *Store) ListTransactions(ctx context.Context, source string, onlyUnreconciled bool) ([]*record.Transaction, error) {
	var where []string
	var args []any
	if source != "" {
		where = append(where, "source = ?")
		args = append(args, source)
	}
	if onlyUnreconciled {
		where = append(where, "reconciled = 0")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id LIMIT ? OFFSET ?"

	var out []*record.Transaction
	for offset := 0; ; offset += pageSize {
		page, err := s.queryTransactions(ctx, query, append(append([]any{}, args...), pageSize, offset)...)
		if err != nil {
			return nil, fmt.Errorf("list transactions (offset %d): %w", offset, err)
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

// ListTransactionsByAccountCodes returns records carrying one of the codes
func (s *Store) ListTransactionsByAccountCodes(ctx context.Context, codes []string) ([]*record.Transaction, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(codes))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(codes)+2)
	for _, c := range codes {
		args = append(args, c)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE financial_account_code IN (` + placeholders + `)
		ORDER BY date, id LIMIT ? OFFSET ?`

	var out []*record.Transaction
	for offset := 0; ; offset += pageSize {
		page, err := s.queryTransactions(ctx, query, append(append([]any{}, args...), pageSize, offset)...)
		if err != nil {
			return nil, fmt.Errorf("list transactions by account codes (offset %d): %w", offset, err)
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

// ApplyMatch marks both sides of an accepted match reconciled in a single
// database transaction, so a pair is never half-written.
func (s *Store) ApplyMatch(ctx context.Context, m record.Match, at time.Time) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	res, err := dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET reconciled = 1,
		    status = ?,
		    matched_invoice_id = ?,
		    match_type = ?,
		    confidence = ?,
		    reconciled_at = ?
		WHERE id = ?`,
		string(record.StatusReconciled), m.InvoiceID, m.Strategy, m.Confidence, at, m.TransactionID)
	if err != nil {
		_ = dbTx.Rollback()
		return fmt.Errorf("update transaction %s: %w", m.TransactionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = dbTx.Rollback()
		return fmt.Errorf("transaction %s not found", m.TransactionID)
	}

	res, err = dbTx.ExecContext(ctx, `
		UPDATE invoices
		SET reconciled = 1,
		    reconciled_with = ?,
		    reconciled_at = ?
		WHERE id = ?`,
		m.TransactionID, at, m.InvoiceID)
	if err != nil {
		_ = dbTx.Rollback()
		return fmt.Errorf("update invoice %s: %w", m.InvoiceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = dbTx.Rollback()
		return fmt.Errorf("invoice %s not found", m.InvoiceID)
	}

	return dbTx.Commit()
}

// AssignAccountCode records an inferred FAC with its provenance tag
func (s *Store) AssignAccountCode(ctx context.Context, txID, code, provenance string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET financial_account_code = ?,
		    fac_source = ?,
		    fac_assigned_at = ?
		WHERE id = ?`,
		code, provenance, at, txID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s not found", txID)
	}
	return nil
}

// CorrectAmount sets a record's amount to the expected value. The record is
// updated in place; reconciliation links are preserved.
func (s *Store) CorrectAmount(ctx context.Context, txID, newAmount string, at time.Time) error {
	if _, err := decimal.NewFromString(newAmount); err != nil {
		return fmt.Errorf("invalid amount %q: %w", newAmount, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?,
		    status = ?
		WHERE id = ?`,
		newAmount, string(record.StatusCorrected), txID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s not found", txID)
	}
	return nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]*record.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*record.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (*record.Transaction, error) {
	var (
		tx            record.Transaction
		amount        string
		status        string
		settlement    sql.NullTime
		reconciledAt  sql.NullTime
		facAssignedAt sql.NullTime
		extraJSON     string
	)

	err := sc.Scan(
		&tx.ID,
		&tx.Source,
		&tx.Date,
		&amount,
		&tx.Currency,
		&tx.Description,
		&status,
		&tx.Reconciled,
		&tx.GatewayTransactionID,
		&tx.OrderID,
		&tx.CustomerName,
		&tx.CustomerEmail,
		&settlement,
		&tx.FinancialAccountCode,
		&tx.MatchedInvoiceID,
		&tx.MatchType,
		&tx.Confidence,
		&reconciledAt,
		&tx.FACSource,
		&facAssignedAt,
		&extraJSON,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s has non-numeric amount %q: %w", tx.ID, amount, err)
	}
	tx.Status = record.Status(status)
	if settlement.Valid {
		tx.SettlementDate = &settlement.Time
	}
	if reconciledAt.Valid {
		tx.ReconciledAt = &reconciledAt.Time
	}
	if facAssignedAt.Valid {
		tx.FACAssignedAt = &facAssignedAt.Time
	}
	if extraJSON != "" {
		if err := json.Unmarshal([]byte(extraJSON), &tx.Extra); err != nil {
			return nil, fmt.Errorf("transaction %s has unreadable extra: %w", tx.ID, err)
		}
	}

	return &tx, nil
}
