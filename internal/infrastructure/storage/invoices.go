package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

const invoiceColumns = `id, invoice_number, customer_name, customer_email, order_id, issue_date,
	total_amount, currency, financial_account_code, reconciled, reconciled_with, reconciled_at`

// SaveInvoice inserts or replaces an invoice record
func (s *Store) SaveInvoice(ctx context.Context, inv *record.Invoice) error {
	query := `
	INSERT OR REPLACE INTO invoices (` + invoiceColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		inv.ID,
		inv.InvoiceNumber,
		inv.CustomerName,
		inv.CustomerEmail,
		inv.OrderID,
		inv.IssueDate,
		inv.TotalAmount.String(),
		inv.Currency,
		inv.FinancialAccountCode,
		inv.Reconciled,
		inv.ReconciledWith,
		inv.ReconciledAt,
	)

	return err
}

// GetInvoice retrieves one invoice by id, nil when the id is unknown
func (s *Store) GetInvoice(ctx context.Context, id string) (*record.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// ListInvoices returns the invoice set, paginated internally and
// accumulated in memory for the run.
func (s *Store) ListInvoices(ctx context.Context, onlyUnreconciled bool) ([]*record.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if onlyUnreconciled {
		query += " WHERE reconciled = 0"
	}
	query += " ORDER BY issue_date, id LIMIT ? OFFSET ?"

	var out []*record.Invoice
	for offset := 0; ; offset += pageSize {
		rows, err := s.db.QueryContext(ctx, query, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list invoices (offset %d): %w", offset, err)
		}

		var page []*record.Invoice
		for rows.Next() {
			inv, err := scanInvoice(rows)
			if err != nil {
				_ = rows.Close()
				return nil, err
			}
			page = append(page, inv)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()

		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

func scanInvoice(sc scanner) (*record.Invoice, error) {
	var (
		inv          record.Invoice
		amount       string
		reconciledAt sql.NullTime
	)

	err := sc.Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.CustomerName,
		&inv.CustomerEmail,
		&inv.OrderID,
		&inv.IssueDate,
		&amount,
		&inv.Currency,
		&inv.FinancialAccountCode,
		&inv.Reconciled,
		&inv.ReconciledWith,
		&reconciledAt,
	)
	if err != nil {
		return nil, err
	}

	inv.TotalAmount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invoice %s has non-numeric amount %q: %w", inv.ID, amount, err)
	}
	if reconciledAt.Valid {
		inv.ReconciledAt = &reconciledAt.Time
	}

	return &inv, nil
}
