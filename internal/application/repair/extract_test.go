package repair

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4.000,50", "4000.50"},
		{"(1.234,56)", "-1234.56"},
		{"-", "0"},
		{"", "0"},
		{"0,00", "0.00"},
		{"123,45", "123.45"},
		{"1.000.000,00", "1000000.00"},
		{"( 500,00 )", "-500.00"},
		{"42", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocaleNumber(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"ParseLocaleNumber(%q) = %s, want %s", tt.in, got, tt.want)
		})
	}
}

func TestParseLocaleNumber_Invalid(t *testing.T) {
	for _, in := range []string{"abc", "1,2,3", "(abc)"} {
		_, err := ParseLocaleNumber(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestLoadExtract_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.csv")
	content := "account_code,date,description,amount\n" +
		"70500000,2025-03-10,SaaS subscription March,\"4.000,50\"\n" +
		"70500000,2025-03-11,Refund credit,\"(1.234,56)\"\n" +
		"70900000,2025-03-12,Zero line,-\n" +
		"70900000,not-a-date,Broken row,\"1,00\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lines, stats, err := LoadExtract(path)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 3, stats.Parsed)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, lines, 3)

	assert.Equal(t, "70500000", lines[0].AccountCode)
	assert.True(t, lines[0].Amount.Equal(decimal.RequireFromString("4000.50")))
	assert.True(t, lines[1].Amount.Equal(decimal.RequireFromString("-1234.56")))
	assert.True(t, lines[2].Amount.IsZero())
}

func TestLoadExtract_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"account_code", "date", "description", "amount"},
		{"70500000", "2025-03-10", "SaaS subscription March", "4.000,50"},
		{"70900000", "10/03/2025", "Bank fee", "(12,34)"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	lines, stats, err := LoadExtract(path)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Parsed)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Amount.Equal(decimal.RequireFromString("4000.50")))
	assert.Equal(t, "70900000", lines[1].AccountCode)
	assert.True(t, lines[1].Amount.Equal(decimal.RequireFromString("-12.34")))
}

func TestLoadExtract_UnsupportedFormat(t *testing.T) {
	_, _, err := LoadExtract("extract.pdf")
	assert.Error(t, err)
}
