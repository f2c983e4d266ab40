package repair

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/normalize"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/config"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/storage"
)

// Mismatch classes, per comparison of current vs expected amount.
const (
	MismatchPhantomNegative = "phantom-negative" // currently negative, should be 0
	MismatchPhantomPositive = "phantom-positive" // currently positive, should be 0
	MismatchMissingValue    = "missing-value"    // currently 0, should be non-zero
	MismatchWrongValue      = "wrong-value"      // both non-zero, different
)

// descriptionPrefixLen bounds the description part of the ledger key.
// Long narrations diverge in their tails (references, sequence numbers)
// while the leading text identifies the line.
const descriptionPrefixLen = 24

// Shared with the reconcile writer: both passes mutate transactions.
const leaseName = "reconcile-writer"

// ledgerKey identifies one ledger line across the extract and the store.
// The account code is part of the key precisely because the faulty pass
// being repaired omitted it.
type ledgerKey struct {
	AccountCode string
	Date        string // yyyy-mm-dd
	Prefix      string
}

func keyFor(code string, date time.Time, description string) ledgerKey {
	return ledgerKey{
		AccountCode: code,
		Date:        date.Format("2006-01-02"),
		Prefix:      normalize.DescriptionPrefix(description, descriptionPrefixLen),
	}
}

// Mismatch is one detected divergence between store and extract.
type Mismatch struct {
	Class         string
	AccountCode   string
	TransactionID string
	Date          string
	Prefix        string
	Current       decimal.Decimal
	Expected      decimal.Decimal
}

// Options configures one repair run
type Options struct {
	ExtractPath string
	// Apply persists corrections; the default reports only.
	Apply bool
}

// Result summarizes one repair run
type Result struct {
	RunUUID      string
	DryRun       bool
	ExtractStats *ParseStats
	RecordsSeen  int
	Mismatches   []Mismatch
	PerClass     map[string]int
	// ImpactByCode aggregates abs(expected-current) per account code
	ImpactByCode map[string]decimal.Decimal
	// Ambiguous counts keys matching several persisted records; those are
	// reported but never auto-corrected.
	Ambiguous  int
	Unmatched  int // extract lines with no persisted record
	Corrected  int
	ErrorCount int
	Errors     []error
}

// Pass compares persisted amounts against the authoritative extract and
// repairs contaminated values in place.
type Pass struct {
	store  storage.Repository
	cfg    *config.Config
	logger *slog.Logger
}

// NewPass creates a repair pass
func NewPass(store storage.Repository, cfg *config.Config, logger *slog.Logger) *Pass {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pass{store: store, cfg: cfg, logger: logger}
}

// Run executes the repair pass against the extract at opts.ExtractPath.
// Corrections set the amount to the expected value and never delete or
// recreate records, so existing reconciliation links survive.
func (p *Pass) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{
		RunUUID:      uuid.New().String(),
		DryRun:       !opts.Apply,
		PerClass:     make(map[string]int),
		ImpactByCode: make(map[string]decimal.Decimal),
	}

	lines, stats, err := LoadExtract(opts.ExtractPath)
	if err != nil {
		return nil, err
	}
	result.ExtractStats = stats
	if stats.Skipped > 0 {
		p.logger.Warn("extract rows skipped", "skipped", stats.Skipped, "parsed", stats.Parsed)
	}

	p.logger.Info("starting repair pass",
		"run_uuid", result.RunUUID,
		"extract_lines", len(lines),
		"dry_run", result.DryRun,
	)

	if opts.Apply {
		ttl := time.Duration(p.cfg.Reconcile.LeaseTTLSeconds) * time.Second
		ok, err := p.store.AcquireLease(ctx, leaseName, result.RunUUID, ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire writer lease: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("another run holds the writer lease")
		}
		defer func() {
			if err := p.store.ReleaseLease(ctx, leaseName, result.RunUUID); err != nil {
				p.logger.Warn("failed to release writer lease", "error", err)
			}
		}()
	}

	runID, err := p.store.StartRun(ctx, result.RunUUID, "repair", "", result.DryRun)
	if err != nil {
		p.logger.Warn("failed to start run tracking", "error", err)
	}

	expected, codes := buildExpected(lines)

	records, err := p.store.ListTransactionsByAccountCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	result.RecordsSeen = len(records)

	byKey := make(map[ledgerKey][]*record.Transaction)
	for _, tx := range records {
		k := keyFor(tx.FinancialAccountCode, tx.Date, tx.Description)
		byKey[k] = append(byKey[k], tx)
	}

	for _, k := range sortedKeys(expected) {
		want := expected[k]
		matched := byKey[k]

		switch len(matched) {
		case 0:
			result.Unmatched++
			continue
		case 1:
			// compare below
		default:
			result.Ambiguous++
			p.logger.Warn("key matches several records, skipping",
				"account_code", k.AccountCode,
				"date", k.Date,
				"records", len(matched),
			)
			continue
		}

		tx := matched[0]
		class, ok := classify(tx.Amount, want)
		if !ok {
			continue
		}

		m := Mismatch{
			Class:         class,
			AccountCode:   k.AccountCode,
			TransactionID: tx.ID,
			Date:          k.Date,
			Prefix:        k.Prefix,
			Current:       tx.Amount,
			Expected:      want,
		}
		result.Mismatches = append(result.Mismatches, m)
		result.PerClass[class]++

		impact := want.Sub(tx.Amount).Abs()
		if prev, ok := result.ImpactByCode[k.AccountCode]; ok {
			result.ImpactByCode[k.AccountCode] = prev.Add(impact)
		} else {
			result.ImpactByCode[k.AccountCode] = impact
		}

		p.logger.Debug("mismatch detected",
			"class", class,
			"transaction_id", tx.ID,
			"account_code", k.AccountCode,
			"current", tx.Amount.String(),
			"expected", want.String(),
		)

		if result.DryRun {
			result.Corrected++
			continue
		}
		if err := p.correct(ctx, runID, m); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Errorf("correct %s: %w", tx.ID, err))
			continue
		}
		result.Corrected++
	}

	if runID > 0 {
		err = p.store.CompleteRun(ctx, runID,
			result.RecordsSeen, 0, result.Corrected, result.Ambiguous+result.Unmatched, result.ErrorCount)
		if err != nil {
			p.logger.Warn("failed to complete run tracking", "error", err)
		}
	}

	p.logger.Info("repair pass finished",
		"run_uuid", result.RunUUID,
		"mismatches", len(result.Mismatches),
		"corrected", result.Corrected,
		"ambiguous", result.Ambiguous,
		"errors", result.ErrorCount,
	)

	return result, nil
}

func (p *Pass) correct(ctx context.Context, runID int64, m Mismatch) error {
	at := time.Now().UTC()
	if err := p.store.CorrectAmount(ctx, m.TransactionID, m.Expected.String(), at); err != nil {
		return err
	}
	c := &storage.Correction{
		RunID:         runID,
		AccountCode:   m.AccountCode,
		TransactionID: m.TransactionID,
		Mismatch:      m.Class,
		OldAmount:     m.Current.String(),
		NewAmount:     m.Expected.String(),
		CorrectedAt:   at,
	}
	if err := p.store.SaveCorrection(ctx, c); err != nil {
		// The amount is fixed; a failed audit row is logged, not fatal
		p.logger.Warn("failed to record correction", "transaction_id", m.TransactionID, "error", err)
	}
	return nil
}

// buildExpected folds the extract into key -> expected amount. Several
// extract lines can legitimately share a key (split bookings); their
// amounts sum to the expected ledger value.
func buildExpected(lines []Line) (map[ledgerKey]decimal.Decimal, []string) {
	expected := make(map[ledgerKey]decimal.Decimal, len(lines))
	seen := make(map[string]bool)
	var codes []string

	for _, l := range lines {
		k := keyFor(l.AccountCode, l.Date, l.Description)
		if prev, ok := expected[k]; ok {
			expected[k] = prev.Add(l.Amount)
		} else {
			expected[k] = l.Amount
		}
		if !seen[l.AccountCode] {
			seen[l.AccountCode] = true
			codes = append(codes, l.AccountCode)
		}
	}

	return expected, codes
}

// sortedKeys fixes iteration order so reports and samples are stable
// between runs over the same extract.
func sortedKeys(expected map[ledgerKey]decimal.Decimal) []ledgerKey {
	keys := make([]ledgerKey, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AccountCode != keys[j].AccountCode {
			return keys[i].AccountCode < keys[j].AccountCode
		}
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Prefix < keys[j].Prefix
	})
	return keys
}

// classify returns the mismatch class, or ok=false when amounts agree.
func classify(current, want decimal.Decimal) (string, bool) {
	if current.Equal(want) {
		return "", false
	}
	switch {
	case want.IsZero() && current.IsNegative():
		return MismatchPhantomNegative, true
	case want.IsZero() && current.IsPositive():
		return MismatchPhantomPositive, true
	case current.IsZero():
		return MismatchMissingValue, true
	default:
		return MismatchWrongValue, true
	}
}
