// Package repair implements the correction pass that reconciles persisted
// ledger amounts against an authoritative accounting extract. An earlier
// automatic pass matched lines by date and description without also
// constraining by account code, so values landed on the wrong ledger
// lines; this pass detects and fixes the contamination in place.
package repair

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Line is one parsed row of the accounting extract.
type Line struct {
	AccountCode string
	Date        time.Time
	Description string
	Amount      decimal.Decimal
}

// ParseStats counts extract rows by outcome. Skipped rows are never fatal.
type ParseStats struct {
	Rows    int
	Parsed  int
	Skipped int
}

// extract column layout: account_code, date, description, amount
const extractColumns = 4

var extractDateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// ParseLocaleNumber parses an amount in the accounting export's locale:
// "." as thousands separator, "," as decimal comma, parenthesis notation
// for negatives ("(1.234,56)" is -1234.56). A bare "-" means exactly zero.
func ParseLocaleNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable locale number %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// LoadExtract reads the accounting export at path (.xlsx or .csv) and
// returns the parseable lines. Malformed rows are skipped and counted.
func LoadExtract(path string) ([]Line, *ParseStats, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, nil, err
	}
	return parseRows(rows)
}

func readRows(path string) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open extract: %w", err)
		}
		defer func() { _ = f.Close() }()
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		return r.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open extract: %w", err)
		}
		defer func() { _ = f.Close() }()
		return f.GetRows(f.GetSheetName(0))
	default:
		return nil, fmt.Errorf("unsupported extract format %q", ext)
	}
}

func parseRows(rows [][]string) ([]Line, *ParseStats, error) {
	stats := &ParseStats{}
	var lines []Line

	for i, row := range rows {
		stats.Rows++
		line, err := parseRow(row)
		if err != nil {
			// The header row fails date parsing and lands here too
			if i > 0 {
				stats.Skipped++
			}
			continue
		}
		stats.Parsed++
		lines = append(lines, line)
	}

	return lines, stats, nil
}

func parseRow(row []string) (Line, error) {
	if len(row) < extractColumns {
		return Line{}, fmt.Errorf("row has %d columns, want %d", len(row), extractColumns)
	}

	code := strings.TrimSpace(row[0])
	if code == "" {
		return Line{}, fmt.Errorf("empty account code")
	}

	date, err := parseExtractDate(strings.TrimSpace(row[1]))
	if err != nil {
		return Line{}, err
	}

	amount, err := ParseLocaleNumber(row[3])
	if err != nil {
		return Line{}, err
	}

	return Line{
		AccountCode: code,
		Date:        date,
		Description: row[2],
		Amount:      amount,
	}, nil
}

func parseExtractDate(s string) (time.Time, error) {
	for _, layout := range extractDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
