package index

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

func invoice(id, orderID, email, name, amount string) *record.Invoice {
	return &record.Invoice{
		ID:            id,
		OrderID:       orderID,
		CustomerEmail: email,
		CustomerName:  name,
		TotalAmount:   decimal.RequireFromString(amount),
	}
}

func TestBuild_OrderIDNormalization(t *testing.T) {
	idx := Build([]*record.Invoice{
		invoice("inv1", "abc1234-5", "", "", "250.00"),
		invoice("inv2", "ABC1234", "", "", "99.00"),
	})

	// Both composite and bare ids land on the same normalized key.
	got := idx.ByOrderID("abc1234-7")
	require.Len(t, got, 2)
	assert.Equal(t, "inv1", got[0].ID)
	assert.Equal(t, "inv2", got[1].ID)
}

func TestBuild_ToleratesMissingFields(t *testing.T) {
	idx := Build([]*record.Invoice{
		{ID: "bare", TotalAmount: decimal.RequireFromString("10.00")},
		nil,
	})

	assert.Equal(t, 1, idx.Len())
	assert.Empty(t, idx.ByOrderID(""))
	assert.Empty(t, idx.ByEmail(""))
	assert.Len(t, idx.ByAmountBucket(10), 1)
}

func TestBuild_ExcludesReconciled(t *testing.T) {
	inv := invoice("inv1", "ord-123456789", "a@b.com", "Acme", "10.00")
	inv.Reconciled = true

	idx := Build([]*record.Invoice{inv})
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.ByEmail("a@b.com"))
}

func TestByDomainAmount(t *testing.T) {
	idx := Build([]*record.Invoice{
		invoice("inv1", "", "billing@acme.com", "Acme", "250.00"),
		invoice("inv2", "", "pay@other.com", "Other", "250.40"),
		invoice("inv3", "", "ops@acme.com", "Acme", "99.00"),
	})

	got := idx.ByDomainAmount("acme.com", 250)
	require.Len(t, got, 1)
	assert.Equal(t, "inv1", got[0].ID)

	assert.Empty(t, idx.ByDomainAmount("", 250))
}

func TestByName_InsertionOrder(t *testing.T) {
	idx := Build([]*record.Invoice{
		invoice("inv1", "", "", "Zeta SL", "1.00"),
		invoice("inv2", "", "", "Acme Corp", "2.00"),
		invoice("inv3", "", "", "zeta  s.l.", "3.00"),
	})

	assert.Equal(t, []string{"zeta sl", "acme corp"}, idx.NameKeys())
	assert.Len(t, idx.ByName("zeta sl"), 2)
}
