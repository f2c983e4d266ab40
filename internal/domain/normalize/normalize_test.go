package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John Smith", "john smith"},
		{"  ACME   Corp S.L. ", "acme corp sl"},
		{"Ibáñez & Asociados", "ibanez asociados"},
		{"JOSÉ-MARÍA", "josemaria"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(tt.input), "input %q", tt.input)
	}
}

func TestOrderID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		// Composite id: hash prefix + sequence number
		{"abc1234-5", "abc1234"},
		{"ABC1234-5", "abc1234"},
		// Short ids keep their dash: length must exceed 8
		{"ab-12", "ab-12"},
		{"plain123", "plain123"},
		{" ORD-123456789 ", "ord"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OrderID(tt.input), "input %q", tt.input)
	}
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "acme.com", EmailDomain("Billing@Acme.com"))
	assert.Equal(t, "", EmailDomain("not-an-email"))
	assert.Equal(t, "", EmailDomain("@acme.com"))
	assert.Equal(t, "", EmailDomain("billing@"))
}

func TestAmountBucket(t *testing.T) {
	assert.Equal(t, int64(250), AmountBucket(decimal.RequireFromString("250.00")))
	assert.Equal(t, int64(250), AmountBucket(decimal.RequireFromString("-249.80")))
	assert.Equal(t, int64(0), AmountBucket(decimal.RequireFromString("0.40")))
}

func TestDayDiff(t *testing.T) {
	a := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 3, 13, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 3, DayDiff(a, b))
	assert.Equal(t, 3, DayDiff(b, a))
	assert.Equal(t, 0, DayDiff(a, a))
}

func TestDescriptionPrefix(t *testing.T) {
	assert.Equal(t, "transf/john", DescriptionPrefix("  Transf/JOHN  ", 20))
	assert.Equal(t, "abcde", DescriptionPrefix("ABCDEFGH", 5))
}
