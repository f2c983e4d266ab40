package storage

import "time"

// ReconRun tracks one batch execution for audit and the API.
type ReconRun struct {
	ID               int64      `json:"id"`
	RunUUID          string     `json:"run_uuid"`
	Kind             string     `json:"kind"` // reconcile | assign-fac | repair
	Source           string     `json:"source,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	DryRun           bool       `json:"dry_run"`
	TransactionsSeen int        `json:"transactions_seen"`
	InvoicesSeen     int        `json:"invoices_seen"`
	Matched          int        `json:"matched"`
	Skipped          int        `json:"skipped"`
	Errors           int        `json:"errors"`
	Status           string     `json:"status"`
}

// Correction is one repaired ledger line, kept for audit.
type Correction struct {
	ID            int64     `json:"id"`
	RunID         int64     `json:"run_id"`
	AccountCode   string    `json:"account_code"`
	TransactionID string    `json:"transaction_id"`
	Mismatch      string    `json:"mismatch"`
	OldAmount     string    `json:"old_amount"`
	NewAmount     string    `json:"new_amount"`
	CorrectedAt   time.Time `json:"corrected_at"`
}

// Stats summarizes the reconciliation state for the API and run output.
type Stats struct {
	Transactions           int                    `json:"transactions"`
	ReconciledTransactions int                    `json:"reconciled_transactions"`
	Invoices               int                    `json:"invoices"`
	ReconciledInvoices     int                    `json:"reconciled_invoices"`
	PerStrategy            map[string]int         `json:"per_strategy"`
	PerSource              map[string]SourceStats `json:"per_source"`
}

// SourceStats is the per-source breakdown.
type SourceStats struct {
	Count      int `json:"count"`
	Reconciled int `json:"reconciled"`
}
