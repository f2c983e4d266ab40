package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	mu           sync.Mutex
	transactions map[string]*record.Transaction
	invoices     map[string]*record.Invoice
	runs         map[int64]*ReconRun
	corrections  []Correction
	leases       map[string]mockLease
	nextRunID    int64

	// Hooks for test assertions
	ApplyMatchCalled    bool
	LastAppliedMatch    *record.Match
	AssignCodeCalled    bool
	CorrectAmountCalled bool
	StartRunCalled      bool

	// Error injection for testing error paths
	SaveTransactionErr error
	ApplyMatchErr      error
	CorrectAmountErr   error
	StartRunErr        error
	AcquireLeaseErr    error
}

type mockLease struct {
	owner     string
	expiresAt time.Time
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		transactions: make(map[string]*record.Transaction),
		invoices:     make(map[string]*record.Invoice),
		runs:         make(map[int64]*ReconRun),
		leases:       make(map[string]mockLease),
		nextRunID:    1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveTransaction saves a transaction to the in-memory map
func (m *MockRepository) SaveTransaction(_ context.Context, tx *record.Transaction) error {
	if m.SaveTransactionErr != nil {
		return m.SaveTransactionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Deep copy to avoid test mutations
	copied := *tx
	m.transactions[tx.ID] = &copied
	return nil
}

// GetTransaction retrieves a transaction from the in-memory map
func (m *MockRepository) GetTransaction(_ context.Context, id string) (*record.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *tx
	return &copied, nil
}

// ListTransactions returns transactions for a source, sorted by date then id
func (m *MockRepository) ListTransactions(_ context.Context, source string, onlyUnreconciled bool) ([]*record.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*record.Transaction
	for _, tx := range m.transactions {
		if source != "" && tx.Source != source {
			continue
		}
		if onlyUnreconciled && tx.Reconciled {
			continue
		}
		copied := *tx
		result = append(result, &copied)
	}
	sortTransactions(result)
	return result, nil
}

// ListTransactionsByAccountCodes returns transactions carrying one of the codes
func (m *MockRepository) ListTransactionsByAccountCodes(_ context.Context, codes []string) ([]*record.Transaction, error) {
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*record.Transaction
	for _, tx := range m.transactions {
		if !wanted[tx.FinancialAccountCode] {
			continue
		}
		copied := *tx
		result = append(result, &copied)
	}
	sortTransactions(result)
	return result, nil
}

// ApplyMatch marks both sides reconciled
func (m *MockRepository) ApplyMatch(_ context.Context, match record.Match, at time.Time) error {
	m.ApplyMatchCalled = true
	m.LastAppliedMatch = &match
	if m.ApplyMatchErr != nil {
		return m.ApplyMatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[match.TransactionID]
	if !ok {
		return fmt.Errorf("transaction %s not found", match.TransactionID)
	}
	inv, ok := m.invoices[match.InvoiceID]
	if !ok {
		return fmt.Errorf("invoice %s not found", match.InvoiceID)
	}

	tx.Status = record.StatusReconciled
	tx.Reconciled = true
	tx.MatchedInvoiceID = match.InvoiceID
	tx.MatchType = match.Strategy
	tx.Confidence = match.Confidence
	tx.ReconciledAt = &at

	inv.Reconciled = true
	inv.ReconciledWith = match.TransactionID
	inv.ReconciledAt = &at
	return nil
}

// AssignAccountCode records an inferred account code with provenance
func (m *MockRepository) AssignAccountCode(_ context.Context, txID, code, provenance string, at time.Time) error {
	m.AssignCodeCalled = true
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[txID]
	if !ok {
		return fmt.Errorf("transaction %s not found", txID)
	}
	tx.FinancialAccountCode = code
	tx.FACSource = provenance
	tx.FACAssignedAt = &at
	return nil
}

// CorrectAmount replaces a transaction's amount and flips status to corrected
func (m *MockRepository) CorrectAmount(_ context.Context, txID, newAmount string, at time.Time) error {
	m.CorrectAmountCalled = true
	if m.CorrectAmountErr != nil {
		return m.CorrectAmountErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[txID]
	if !ok {
		return fmt.Errorf("transaction %s not found", txID)
	}
	amount, err := decimal.NewFromString(newAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", newAmount, err)
	}
	tx.Amount = amount
	tx.Status = record.StatusCorrected
	return nil
}

// SaveInvoice saves an invoice to the in-memory map
func (m *MockRepository) SaveInvoice(_ context.Context, inv *record.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *inv
	m.invoices[inv.ID] = &copied
	return nil
}

// GetInvoice retrieves an invoice from the in-memory map
func (m *MockRepository) GetInvoice(_ context.Context, id string) (*record.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

// ListInvoices returns invoices, sorted by issue date then id
func (m *MockRepository) ListInvoices(_ context.Context, onlyUnreconciled bool) ([]*record.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*record.Invoice
	for _, inv := range m.invoices {
		if onlyUnreconciled && inv.Reconciled {
			continue
		}
		copied := *inv
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].IssueDate.Equal(result[j].IssueDate) {
			return result[i].IssueDate.Before(result[j].IssueDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// StartRun creates a new run and returns its ID
func (m *MockRepository) StartRun(_ context.Context, runUUID, kind, source string, dryRun bool) (int64, error) {
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return 0, m.StartRunErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextRunID
	m.nextRunID++
	m.runs[id] = &ReconRun{
		ID:        id,
		RunUUID:   runUUID,
		Kind:      kind,
		Source:    source,
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
		Status:    "running",
	}
	return id, nil
}

// CompleteRun marks a run as complete
func (m *MockRepository) CompleteRun(_ context.Context, runID int64, transactionsSeen, invoicesSeen, matched, skipped, errors int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %d not found", runID)
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.TransactionsSeen = transactionsSeen
	run.InvoicesSeen = invoicesSeen
	run.Matched = matched
	run.Skipped = skipped
	run.Errors = errors
	run.Status = "completed"
	if errors > 0 {
		run.Status = "completed_with_errors"
	}
	return nil
}

// ListRuns returns recent runs, newest first
func (m *MockRepository) ListRuns(_ context.Context, limit int) ([]ReconRun, error) {
	if limit == 0 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []ReconRun
	for _, r := range m.runs {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SaveCorrection records a repaired ledger line
func (m *MockRepository) SaveCorrection(_ context.Context, c *Correction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = int64(len(m.corrections) + 1)
	m.corrections = append(m.corrections, *c)
	return nil
}

// ListCorrections returns recent corrections, newest first
func (m *MockRepository) ListCorrections(_ context.Context, limit int) ([]Correction, error) {
	if limit == 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Correction
	for i := len(m.corrections) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.corrections[i])
	}
	return result, nil
}

// GetStats computes statistics over the in-memory data
func (m *MockRepository) GetStats(_ context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &Stats{
		PerStrategy: make(map[string]int),
		PerSource:   make(map[string]SourceStats),
	}
	for _, tx := range m.transactions {
		stats.Transactions++
		ss := stats.PerSource[tx.Source]
		ss.Count++
		if tx.Reconciled {
			stats.ReconciledTransactions++
			ss.Reconciled++
			if tx.MatchType != "" {
				stats.PerStrategy[tx.MatchType]++
			}
		}
		stats.PerSource[tx.Source] = ss
	}
	for _, inv := range m.invoices {
		stats.Invoices++
		if inv.Reconciled {
			stats.ReconciledInvoices++
		}
	}
	return stats, nil
}

// AcquireLease takes the named lease unless a live foreign owner holds it
func (m *MockRepository) AcquireLease(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if m.AcquireLeaseErr != nil {
		return false, m.AcquireLeaseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if l, ok := m.leases[name]; ok && l.owner != owner && l.expiresAt.After(now) {
		return false, nil
	}
	m.leases[name] = mockLease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// ReleaseLease frees the named lease if owner still holds it
func (m *MockRepository) ReleaseLease(_ context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[name]; ok && l.owner == owner {
		delete(m.leases, name)
	}
	return nil
}

// Helper methods for test setup

// AddTransaction adds a transaction directly (for test setup)
func (m *MockRepository) AddTransaction(tx *record.Transaction) {
	m.transactions[tx.ID] = tx
}

// AddInvoice adds an invoice directly (for test setup)
func (m *MockRepository) AddInvoice(inv *record.Invoice) {
	m.invoices[inv.ID] = inv
}

// GetRun returns the internal run for test assertions
func (m *MockRepository) GetRun(id int64) *ReconRun {
	return m.runs[id]
}

func sortTransactions(txs []*record.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}
