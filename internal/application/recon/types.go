package recon

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/config"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/storage"
)

// Options holds one run's configuration
type Options struct {
	// Apply persists accepted matches. The default is a dry run that
	// reports what would change and writes nothing.
	Apply bool
	// Source restricts the run to one configured payment source. Empty
	// runs every configured source in order.
	Source string
	// TransactionID limits the run to a single transaction (for debugging)
	TransactionID string
}

// Result holds one run's outcome for reporting
type Result struct {
	RunUUID          string
	DryRun           bool
	TransactionsSeen int
	InvoicesSeen     int
	Skipped          int // already-reconciled rows left untouched
	Matched          int
	Applied          int
	Matches          []record.Match
	Unmatched        []*record.Transaction
	PerStrategy      map[string]int
	Buckets          map[string]int
	MatchedAmount    decimal.Decimal
	Assigned         int // account codes written (assign-codes runs)
	Unresolved       int // transactions no ladder rung could code
	ErrorCount       int
	Errors           []error
}

// Orchestrator wires the candidate index, the strategy cascade, and the
// writer into one reconciliation run.
type Orchestrator struct {
	store  storage.Repository
	cfg    *config.Config
	logger *slog.Logger
}

// NewOrchestrator creates a reconciliation orchestrator
func NewOrchestrator(store storage.Repository, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}
