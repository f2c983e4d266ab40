// Package record defines the core entities the reconciliation engine
// operates on: payment-side transactions and billing-side invoices.
//
// Records are produced by the ingestion layer (spreadsheet importers and
// webhook receivers, outside this repository) and handed over already
// normalized. The engine only mutates reconciliation state and, in the
// repair pass, corrects contaminated amounts.
package record

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks a transaction through the reconciliation lifecycle.
type Status string

const (
	StatusUnmatched  Status = "unmatched"
	StatusMatched    Status = "matched"
	StatusReconciled Status = "reconciled"
	StatusCorrected  Status = "corrected"
)

// SourceKind distinguishes the two families of payment sources.
type SourceKind string

const (
	SourceGateway SourceKind = "gateway" // card / direct-debit processors
	SourceBank    SourceKind = "bank"    // bank account feeds
)

// Transaction is a payment-side event from a gateway or bank feed.
//
// Source-specific fields are explicit columns rather than a dynamic
// property bag; genuinely variable leftovers go into Extra, which is
// validated at the ingestion boundary and never consulted by matching.
type Transaction struct {
	ID          string          `json:"id"` // external id, unique across sources
	Source      string          `json:"source"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"` // signed
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	Reconciled  bool            `json:"reconciled"`

	GatewayTransactionID string     `json:"gateway_transaction_id,omitempty"`
	OrderID              string     `json:"order_id,omitempty"`
	CustomerName         string     `json:"customer_name,omitempty"`
	CustomerEmail        string     `json:"customer_email,omitempty"`
	SettlementDate       *time.Time `json:"settlement_date,omitempty"`
	FinancialAccountCode string     `json:"financial_account_code,omitempty"`

	// Match provenance, written by the reconciliation writer.
	MatchedInvoiceID string     `json:"matched_invoice_id,omitempty"`
	MatchType        string     `json:"match_type,omitempty"`
	Confidence       int        `json:"confidence,omitempty"`
	ReconciledAt     *time.Time `json:"reconciled_at,omitempty"`

	// FAC inference provenance, written by the ledger-code pass.
	FACSource     string     `json:"fac_fallback_source,omitempty"`
	FACAssignedAt *time.Time `json:"fac_fallback_at,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Invoice is a billing-side event from the invoicing/CRM ledger.
type Invoice struct {
	ID                   string          `json:"id"`
	InvoiceNumber        string          `json:"invoice_number"`
	CustomerName         string          `json:"customer_name"`
	CustomerEmail        string          `json:"customer_email"`
	OrderID              string          `json:"order_id"`
	IssueDate            time.Time       `json:"issue_date"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	Currency             string          `json:"currency"`
	FinancialAccountCode string          `json:"financial_account_code,omitempty"`
	Reconciled           bool            `json:"reconciled"`
	ReconciledWith       string          `json:"reconciled_with,omitempty"`
	ReconciledAt         *time.Time      `json:"reconciled_at,omitempty"`
}

// Match is the instruction the writer executes. It is never persisted as
// its own entity; provenance lands on both matched records instead.
type Match struct {
	TransactionID string   `json:"transaction_id"`
	InvoiceID     string   `json:"invoice_id"`
	Strategy      string   `json:"strategy"`
	Confidence    int      `json:"confidence"` // 0-100
	Reasons       []string `json:"reasons,omitempty"`
}
