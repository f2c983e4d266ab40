package storage

import (
	"context"
	"time"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

// Repository defines the complete storage interface. It allows swapping
// implementations and makes testing with the in-memory mock straightforward.
type Repository interface {
	TransactionRepository
	InvoiceRepository
	RunRepository
	LeaseRepository
	Close() error
}

// TransactionRepository handles payment-side records.
type TransactionRepository interface {
	// SaveTransaction inserts or replaces a transaction record.
	SaveTransaction(ctx context.Context, tx *record.Transaction) error

	// GetTransaction retrieves one record by id.
	GetTransaction(ctx context.Context, id string) (*record.Transaction, error)

	// ListTransactions returns every record for a source (all sources when
	// source is empty), optionally restricted to unreconciled rows. Reads
	// are paginated internally and accumulated.
	ListTransactions(ctx context.Context, source string, onlyUnreconciled bool) ([]*record.Transaction, error)

	// ListTransactionsByAccountCodes returns records carrying one of the
	// given financial account codes.
	ListTransactionsByAccountCodes(ctx context.Context, codes []string) ([]*record.Transaction, error)

	// ApplyMatch marks both sides of an accepted match reconciled, in one
	// database transaction so a pair is never half-written.
	ApplyMatch(ctx context.Context, m record.Match, at time.Time) error

	// AssignAccountCode records an inferred FAC with its provenance tag.
	AssignAccountCode(ctx context.Context, txID, code, provenance string, at time.Time) error

	// CorrectAmount sets a record's amount to the expected value and flips
	// its status to corrected. Links to the matched invoice are preserved.
	CorrectAmount(ctx context.Context, txID, newAmount string, at time.Time) error
}

// InvoiceRepository handles billing-side records.
type InvoiceRepository interface {
	SaveInvoice(ctx context.Context, inv *record.Invoice) error
	GetInvoice(ctx context.Context, id string) (*record.Invoice, error)
	// ListInvoices returns the invoice set for the matching window,
	// paginated internally.
	ListInvoices(ctx context.Context, onlyUnreconciled bool) ([]*record.Invoice, error)
}

// RunRepository tracks batch executions, corrections, and statistics.
type RunRepository interface {
	StartRun(ctx context.Context, runUUID, kind, source string, dryRun bool) (int64, error)
	CompleteRun(ctx context.Context, runID int64, transactionsSeen, invoicesSeen, matched, skipped, errors int) error
	ListRuns(ctx context.Context, limit int) ([]ReconRun, error)
	SaveCorrection(ctx context.Context, c *Correction) error
	ListCorrections(ctx context.Context, limit int) ([]Correction, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// LeaseRepository implements the single-writer lease: two concurrent
// applying runs against overlapping data could otherwise both claim the
// same invoice before either commits.
type LeaseRepository interface {
	// AcquireLease takes the named lease for owner until ttl elapses.
	// Returns false when another live owner holds it.
	AcquireLease(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	// ReleaseLease drops the lease if owner still holds it.
	ReleaseLease(ctx context.Context, name, owner string) error
}
