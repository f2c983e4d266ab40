package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "recon_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testTransaction(id string) *record.Transaction {
	return &record.Transaction{
		ID:            id,
		Source:        "stripe",
		Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.NewFromFloat(120.50),
		Currency:      "EUR",
		Description:   "STRIPE PAYOUT",
		Status:        record.StatusUnmatched,
		OrderID:       "ord123456789",
		CustomerName:  "Acme Corp",
		CustomerEmail: "billing@acme.com",
	}
}

func testInvoice(id string) *record.Invoice {
	return &record.Invoice{
		ID:            id,
		InvoiceNumber: "F-2025-0042",
		CustomerName:  "Acme Corp",
		CustomerEmail: "billing@acme.com",
		OrderID:       "ord123456789",
		IssueDate:     time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		TotalAmount:   decimal.NewFromFloat(120.50),
		Currency:      "EUR",
	}
}

func TestStore_SaveAndGetTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := testTransaction("tx-1")
	tx.Extra = map[string]string{"payout_id": "po_9"}
	require.NoError(t, s.SaveTransaction(ctx, tx))

	got, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "stripe", got.Source)
	assert.True(t, got.Amount.Equal(decimal.NewFromFloat(120.50)))
	assert.Equal(t, record.StatusUnmatched, got.Status)
	assert.Equal(t, "po_9", got.Extra["payout_id"])

	missing, err := s.GetTransaction(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_GetMissingReturnsNilNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.GetTransaction(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, tx)

	inv, err := s.GetInvoice(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestStore_SaveTransactionIsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := testTransaction("tx-1")
	require.NoError(t, s.SaveTransaction(ctx, tx))
	tx.Description = "STRIPE PAYOUT MARCH"
	require.NoError(t, s.SaveTransaction(ctx, tx))

	got, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "STRIPE PAYOUT MARCH", got.Description)

	all, err := s.ListTransactions(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ListTransactionsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testTransaction("tx-a")
	b := testTransaction("tx-b")
	b.Source = "gocardless"
	c := testTransaction("tx-c")
	c.Reconciled = true
	c.Status = record.StatusReconciled
	for _, tx := range []*record.Transaction{a, b, c} {
		require.NoError(t, s.SaveTransaction(ctx, tx))
	}

	stripe, err := s.ListTransactions(ctx, "stripe", false)
	require.NoError(t, err)
	assert.Len(t, stripe, 2)

	open, err := s.ListTransactions(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, tx := range open {
		assert.False(t, tx.Reconciled)
	}
}

func TestStore_ListTransactionsByAccountCodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testTransaction("tx-a")
	a.FinancialAccountCode = "70500000"
	b := testTransaction("tx-b")
	b.FinancialAccountCode = "70900000"
	c := testTransaction("tx-c")
	for _, tx := range []*record.Transaction{a, b, c} {
		require.NoError(t, s.SaveTransaction(ctx, tx))
	}

	got, err := s.ListTransactionsByAccountCodes(ctx, []string{"70500000", "70900000"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ListTransactionsByAccountCodes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_ApplyMatchUpdatesBothSides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTransaction(ctx, testTransaction("tx-1")))
	require.NoError(t, s.SaveInvoice(ctx, testInvoice("inv-1")))

	at := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	m := record.Match{
		TransactionID: "tx-1",
		InvoiceID:     "inv-1",
		Strategy:      "order-id",
		Confidence:    100,
	}
	require.NoError(t, s.ApplyMatch(ctx, m, at))

	tx, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, tx.Reconciled)
	assert.Equal(t, record.StatusReconciled, tx.Status)
	assert.Equal(t, "inv-1", tx.MatchedInvoiceID)
	assert.Equal(t, "order-id", tx.MatchType)
	assert.Equal(t, 100, tx.Confidence)
	require.NotNil(t, tx.ReconciledAt)

	inv, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, inv.Reconciled)
	assert.Equal(t, "tx-1", inv.ReconciledWith)
}

func TestStore_ApplyMatchMissingInvoiceRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTransaction(ctx, testTransaction("tx-1")))

	m := record.Match{TransactionID: "tx-1", InvoiceID: "ghost", Strategy: "order-id", Confidence: 100}
	err := s.ApplyMatch(ctx, m, time.Now().UTC())
	require.Error(t, err)

	// Rollback must have left the transaction untouched
	tx, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, tx.Reconciled)
	assert.Empty(t, tx.MatchedInvoiceID)
}

func TestStore_AssignAccountCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTransaction(ctx, testTransaction("tx-1")))

	at := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.AssignAccountCode(ctx, "tx-1", "70500000", "customer-name", at))

	tx, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "70500000", tx.FinancialAccountCode)
	assert.Equal(t, "customer-name", tx.FACSource)
	require.NotNil(t, tx.FACAssignedAt)
}

func TestStore_CorrectAmount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTransaction(ctx, testTransaction("tx-1")))
	require.NoError(t, s.CorrectAmount(ctx, "tx-1", "4000.50", time.Now().UTC()))

	tx, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("4000.50")))
	assert.Equal(t, record.StatusCorrected, tx.Status)

	err = s.CorrectAmount(ctx, "tx-1", "not-a-number", time.Now().UTC())
	assert.Error(t, err)
}

func TestStore_RunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "run-uuid-1", "reconcile", "stripe", true)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, id, 100, 90, 80, 5, 2))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-uuid-1", runs[0].RunUUID)
	assert.Equal(t, "reconcile", runs[0].Kind)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, 80, runs[0].Matched)
	assert.Equal(t, "completed_with_errors", runs[0].Status)
	require.NotNil(t, runs[0].CompletedAt)
}

func TestStore_Corrections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx, "run-uuid-2", "repair", "", false)
	require.NoError(t, err)

	c := &Correction{
		RunID:         runID,
		AccountCode:   "70500000",
		TransactionID: "tx-1",
		Mismatch:      "wrong-value",
		OldAmount:     "10.00",
		NewAmount:     "4000.50",
		CorrectedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.SaveCorrection(ctx, c))

	got, err := s.ListCorrections(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wrong-value", got[0].Mismatch)
	assert.Equal(t, "4000.50", got[0].NewAmount)
}

func TestStore_GetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTransaction(ctx, testTransaction("tx-1")))
	b := testTransaction("tx-2")
	b.Source = "gocardless"
	require.NoError(t, s.SaveTransaction(ctx, b))
	require.NoError(t, s.SaveInvoice(ctx, testInvoice("inv-1")))

	m := record.Match{TransactionID: "tx-1", InvoiceID: "inv-1", Strategy: "order-id", Confidence: 100}
	require.NoError(t, s.ApplyMatch(ctx, m, time.Now().UTC()))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Transactions)
	assert.Equal(t, 1, stats.ReconciledTransactions)
	assert.Equal(t, 1, stats.Invoices)
	assert.Equal(t, 1, stats.ReconciledInvoices)
	assert.Equal(t, 1, stats.PerStrategy["order-id"])
	assert.Equal(t, 1, stats.PerSource["stripe"].Reconciled)
}

func TestStore_Leases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.AcquireLease(ctx, "reconcile", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Another owner cannot take a live lease
	ok, err = s.AcquireLease(ctx, "reconcile", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Same owner renews
	ok, err = s.AcquireLease(ctx, "reconcile", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Released lease is free again
	require.NoError(t, s.ReleaseLease(ctx, "reconcile", "owner-a"))
	ok, err = s.AcquireLease(ctx, "reconcile", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Expired lease can be stolen
	ok, err = s.AcquireLease(ctx, "other", "owner-a", -time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.AcquireLease(ctx, "other", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
