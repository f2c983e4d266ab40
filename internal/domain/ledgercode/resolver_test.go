package ledgercode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

func codedInvoice(name, email, code string) *record.Invoice {
	return &record.Invoice{CustomerName: name, CustomerEmail: email, FinancialAccountCode: code}
}

func TestResolveName_MajorityVote(t *testing.T) {
	votes := BuildVotes([]*record.Invoice{
		codedInvoice("acme", "", "101.1"),
		codedInvoice("acme", "", "101.1"),
		codedInvoice("ACME", "", "101.1"),
		codedInvoice("acme", "", "102.2"),
	}, nil)

	code, ok := votes.ResolveName("Acme")
	require.True(t, ok)
	assert.Equal(t, "101.1", code)
}

func TestResolveName_TieBreaksFirstSeen(t *testing.T) {
	votes := BuildVotes([]*record.Invoice{
		codedInvoice("zeta", "", "200.1"),
		codedInvoice("zeta", "", "300.9"),
	}, nil)

	code, ok := votes.ResolveName("zeta")
	require.True(t, ok)
	assert.Equal(t, "200.1", code)
}

func TestResolveDomain_RequiresTwoVotes(t *testing.T) {
	votes := BuildVotes([]*record.Invoice{
		codedInvoice("", "a@solo.com", "400.0"),
		codedInvoice("", "a@acme.com", "101.1"),
		codedInvoice("", "b@acme.com", "101.1"),
	}, nil)

	_, ok := votes.ResolveDomain("x@solo.com")
	assert.False(t, ok, "single observation must not be trusted")

	code, ok := votes.ResolveDomain("c@acme.com")
	require.True(t, ok)
	assert.Equal(t, "101.1", code)
}

func TestResolve_Ladder(t *testing.T) {
	invoices := []*record.Invoice{
		codedInvoice("Known Customer", "", "101.1"),
		codedInvoice("", "a@acme.com", "102.2"),
		codedInvoice("", "b@acme.com", "102.2"),
	}
	transactions := []*record.Transaction{
		{Source: "gocardless", FinancialAccountCode: "700.5"},
		{Source: "gocardless", FinancialAccountCode: "700.5"},
		{Source: "gocardless", FinancialAccountCode: "700.1"},
	}
	votes := BuildVotes(invoices, transactions)

	byName, ok := votes.Resolve(&record.Transaction{CustomerName: "known customer"})
	require.True(t, ok)
	assert.Equal(t, "101.1", byName.Code)
	assert.Equal(t, ProvenanceCustomerName, byName.Provenance)
	assert.False(t, byName.AssignedAt.IsZero())

	byDomain, ok := votes.Resolve(&record.Transaction{CustomerEmail: "new@acme.com"})
	require.True(t, ok)
	assert.Equal(t, "102.2", byDomain.Code)
	assert.Equal(t, ProvenanceEmailDomain, byDomain.Provenance)

	bySource, ok := votes.Resolve(&record.Transaction{Source: "gocardless"})
	require.True(t, ok)
	assert.Equal(t, "700.5", bySource.Code)
	assert.Equal(t, ProvenanceSourceDominant, bySource.Provenance)

	_, ok = votes.Resolve(&record.Transaction{Source: "unknown"})
	assert.False(t, ok)
}
