package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/index"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func tx(id, orderID, email, amount string) *record.Transaction {
	return &record.Transaction{
		ID:            id,
		Source:        "stripe",
		Date:          day,
		Amount:        decimal.RequireFromString(amount),
		OrderID:       orderID,
		CustomerEmail: email,
		Status:        record.StatusUnmatched,
	}
}

func inv(id, orderID, email, name, amount string, issued time.Time) *record.Invoice {
	return &record.Invoice{
		ID:            id,
		OrderID:       orderID,
		CustomerEmail: email,
		CustomerName:  name,
		TotalAmount:   decimal.RequireFromString(amount),
		IssueDate:     issued,
	}
}

func allStrategies(t *testing.T) *Cascade {
	t.Helper()
	c, err := New(DefaultConfig(), []string{
		StrategyOrderID, StrategyEmailAmount, StrategyDomainAmountDate, StrategyPayerName, StrategyAmountDate,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsUnknownStrategy(t *testing.T) {
	_, err := New(DefaultConfig(), []string{"best-guess"}, nil)
	assert.Error(t, err)

	_, err = New(DefaultConfig(), nil, nil)
	assert.Error(t, err)
}

func TestCascade_OrderIDWins(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build([]*record.Invoice{
		inv("inv1", "abc1234", "x@acme.com", "Acme", "250.00", day),
	})

	payment := tx("tx1", "abc1234-5", "", "250.00")
	out := c.Run([]*record.Transaction{payment}, idx)

	require.Len(t, out.Matches, 1)
	m := out.Matches[0]
	assert.Equal(t, "inv1", m.InvoiceID)
	assert.Equal(t, StrategyOrderID, m.Strategy)
	assert.Equal(t, 100, m.Confidence)
	assert.NotEmpty(t, m.Reasons)
	assert.Equal(t, 1, out.PerStrategy[StrategyOrderID])
	assert.Equal(t, record.StatusMatched, payment.Status)
}

func TestCascade_OrderIDAmountMismatchFallsThrough(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build([]*record.Invoice{
		inv("inv1", "abc1234", "x@acme.com", "Acme", "250.50", day),
	})

	// Same order id but amounts differ by 0.50: order-id verification
	// (< 0.01) rejects it, email+amount (< 1.0) accepts it.
	out := c.Run([]*record.Transaction{tx("tx1", "abc1234", "x@acme.com", "250.00")}, idx)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, StrategyEmailAmount, out.Matches[0].Strategy)
	assert.Equal(t, 90, out.Matches[0].Confidence)
}

func TestCascade_DomainAmountDate(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build([]*record.Invoice{
		// Different mailbox, same domain; invoice issued 2 days earlier.
		inv("inv1", "", "billing@acme.com", "Acme", "250.40", day.AddDate(0, 0, -2)),
	})

	out := c.Run([]*record.Transaction{tx("tx1", "", "ops@acme.com", "250.00")}, idx)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, StrategyDomainAmountDate, out.Matches[0].Strategy)
	assert.Equal(t, 75, out.Matches[0].Confidence)
}

func TestCascade_DomainDateWindowExceeded(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build([]*record.Invoice{
		inv("inv1", "", "billing@acme.com", "Acme", "250.40", day.AddDate(0, 0, -4)),
	})

	// 4 days is outside the ±3 window for domain matching, but inside the
	// ±7 fallback window; the low-confidence rung picks it up.
	out := c.Run([]*record.Transaction{tx("tx1", "", "ops@acme.com", "250.00")}, idx)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, StrategyAmountDate, out.Matches[0].Strategy)
	assert.Equal(t, 50, out.Matches[0].Confidence)
}

func TestCascade_PayerName(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build([]*record.Invoice{
		inv("inv1", "", "", "Maria Garcia SL", "480.00", day.AddDate(0, 0, -1)),
	})

	bankTx := &record.Transaction{
		ID:          "tx1",
		Source:      "bank",
		Date:        day,
		Amount:      decimal.RequireFromString("480.00"),
		Description: "Transf/MARIA GARCIA SL",
	}

	out := c.Run([]*record.Transaction{bankTx}, idx)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, StrategyPayerName, out.Matches[0].Strategy)
	assert.Equal(t, 70, out.Matches[0].Confidence)
}

func TestCascade_UnextractableBucketed(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build(nil)

	out := c.Run([]*record.Transaction{
		{ID: "tx1", Date: day, Amount: decimal.RequireFromString("10.00"), Description: "PAYPAL TRANSFER XYZ"},
		{ID: "tx2", Date: day, Amount: decimal.RequireFromString("20.00"), Description: "REMESA RECIBOS"},
	}, idx)

	assert.Empty(t, out.Matches)
	assert.Len(t, out.Unmatched, 2)
	assert.Equal(t, 1, out.Buckets["paypal"])
	assert.Equal(t, 1, out.Buckets["remesa"])
}

func TestCascade_AtMostOneInvoicePerRun(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build([]*record.Invoice{
		inv("inv1", "", "x@acme.com", "Acme", "100.00", day),
	})

	// Two transactions both fit the single invoice: first-found wins,
	// the second must not claim it again.
	out := c.Run([]*record.Transaction{
		tx("tx1", "", "x@acme.com", "100.00"),
		tx("tx2", "", "x@acme.com", "100.00"),
	}, idx)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, "tx1", out.Matches[0].TransactionID)
	require.Len(t, out.Unmatched, 1)
	assert.Equal(t, "tx2", out.Unmatched[0].ID)
}

func TestCascade_IdempotentOverSameInputs(t *testing.T) {
	c := allStrategies(t)
	invoices := []*record.Invoice{
		inv("inv1", "abc1234", "", "", "250.00", day),
		inv("inv2", "", "x@acme.com", "Acme", "99.50", day),
	}
	transactions := []*record.Transaction{
		tx("tx1", "abc1234-5", "", "250.00"),
		tx("tx2", "", "x@acme.com", "99.00"),
	}

	first := c.Run(transactions, index.Build(invoices))
	second := c.Run(transactions, index.Build(invoices))

	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, first.PerStrategy, second.PerStrategy)
}

func TestCascade_ReconciledExcluded(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build([]*record.Invoice{
		inv("inv1", "abc1234", "", "", "250.00", day),
	})

	done := tx("tx1", "abc1234", "", "250.00")
	done.Reconciled = true

	out := c.Run([]*record.Transaction{done}, idx)

	assert.Empty(t, out.Matches)
	assert.Empty(t, out.Unmatched)
	assert.Equal(t, 1, out.SkippedReconciled)
}

func TestCascade_ToleranceInvariant(t *testing.T) {
	c := allStrategies(t)
	idx := index.Build([]*record.Invoice{
		inv("inv1", "", "x@acme.com", "Acme", "101.00", day),
	})

	// Exactly 1.0 apart: strictly-less-than tolerance rejects it.
	out := c.Run([]*record.Transaction{tx("tx1", "", "x@acme.com", "100.00")}, idx)
	assert.Empty(t, out.Matches)

	// 0.99 apart passes.
	out = c.Run([]*record.Transaction{tx("tx2", "", "x@acme.com", "100.01")}, idx)
	require.Len(t, out.Matches, 1)
}
