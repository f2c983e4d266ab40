package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/application/recon"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/application/repair"
)

// sampleLimit bounds the review sample printed after a run
const sampleLimit = 15

// Banner prints a command header and the run mode
func Banner(title string, apply bool) {
	fmt.Println(title)
	fmt.Println("=" + strings.Repeat("=", 50))
	if apply {
		fmt.Println("⚠️  APPLY MODE - Changes will be written!")
	} else {
		fmt.Println("🔍 DRY RUN MODE - No changes will be made")
	}
	fmt.Println()
}

// ReconSummary prints one reconciliation run for human review
func ReconSummary(result *recon.Result) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("📊 SUMMARY")
	fmt.Printf("   Run:          %s\n", result.RunUUID)
	fmt.Printf("   Transactions: %d\n", result.TransactionsSeen)
	fmt.Printf("   Invoices:     %d\n", result.InvoicesSeen)
	fmt.Printf("   Matched:      %d\n", result.Matched)
	fmt.Printf("   Applied:      %d%s\n", result.Applied, applySuffix(result.DryRun))
	fmt.Printf("   Unmatched:    %d\n", len(result.Unmatched))
	fmt.Printf("   Skipped:      %d (already reconciled)\n", result.Skipped)
	fmt.Printf("   Errors:       %d\n", result.ErrorCount)
	fmt.Printf("   Matched amount: %s\n", result.MatchedAmount.StringFixed(2))

	if len(result.PerStrategy) > 0 {
		fmt.Println("\n🎯 PER STRATEGY")
		for _, name := range sortedCountKeys(result.PerStrategy) {
			fmt.Printf("   %-20s %d\n", name, result.PerStrategy[name])
		}
	}

	if len(result.Buckets) > 0 {
		fmt.Println("\n🪣 UNEXTRACTABLE NARRATIONS")
		for _, name := range sortedCountKeys(result.Buckets) {
			fmt.Printf("   %-14s %d\n", name, result.Buckets[name])
		}
	}

	if len(result.Matches) > 0 {
		fmt.Printf("\n🔎 SAMPLE (%d of %d matches)\n", sampleSize(len(result.Matches)), len(result.Matches))
		for i, m := range result.Matches {
			if i >= sampleLimit {
				break
			}
			fmt.Printf("   %s -> %s [%s/%d]\n", m.TransactionID, m.InvoiceID, m.Strategy, m.Confidence)
		}
	}

	for _, err := range result.Errors {
		fmt.Printf("   ❌ %v\n", err)
	}
}

// AssignSummary prints one account-code assignment run
func AssignSummary(result *recon.Result) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("📊 SUMMARY")
	fmt.Printf("   Run:           %s\n", result.RunUUID)
	fmt.Printf("   Transactions:  %d\n", result.TransactionsSeen)
	fmt.Printf("   Invoices:      %d\n", result.InvoicesSeen)
	fmt.Printf("   Assigned:      %d%s\n", result.Assigned, applySuffix(result.DryRun))
	fmt.Printf("   Already coded: %d\n", result.Skipped)
	fmt.Printf("   Unresolved:    %d\n", result.Unresolved)
	fmt.Printf("   Errors:        %d\n", result.ErrorCount)

	for _, err := range result.Errors {
		fmt.Printf("   ❌ %v\n", err)
	}
}

// RepairSummary prints one repair run with per-account impact
func RepairSummary(result *repair.Result) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("📊 SUMMARY")
	fmt.Printf("   Run:        %s\n", result.RunUUID)
	if result.ExtractStats != nil {
		fmt.Printf("   Extract:    %d rows (%d parsed, %d skipped)\n",
			result.ExtractStats.Rows, result.ExtractStats.Parsed, result.ExtractStats.Skipped)
	}
	fmt.Printf("   Records:    %d\n", result.RecordsSeen)
	fmt.Printf("   Mismatches: %d\n", len(result.Mismatches))
	fmt.Printf("   Corrected:  %d%s\n", result.Corrected, applySuffix(result.DryRun))
	fmt.Printf("   Ambiguous:  %d (reported only)\n", result.Ambiguous)
	fmt.Printf("   Unmatched:  %d extract lines\n", result.Unmatched)
	fmt.Printf("   Errors:     %d\n", result.ErrorCount)

	if len(result.PerClass) > 0 {
		fmt.Println("\n🏷️  PER CLASS")
		for _, class := range sortedCountKeys(result.PerClass) {
			fmt.Printf("   %-18s %d\n", class, result.PerClass[class])
		}
	}

	if len(result.ImpactByCode) > 0 {
		fmt.Println("\n💰 IMPACT BY ACCOUNT CODE")
		codes := make([]string, 0, len(result.ImpactByCode))
		for code := range result.ImpactByCode {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		total := decimal.Zero
		for _, code := range codes {
			fmt.Printf("   %-12s %s\n", code, result.ImpactByCode[code].StringFixed(2))
			total = total.Add(result.ImpactByCode[code])
		}
		fmt.Printf("   %-12s %s\n", "TOTAL", total.StringFixed(2))
	}

	if len(result.Mismatches) > 0 {
		fmt.Printf("\n🔎 SAMPLE (%d of %d mismatches)\n", sampleSize(len(result.Mismatches)), len(result.Mismatches))
		for i, m := range result.Mismatches {
			if i >= sampleLimit {
				break
			}
			fmt.Printf("   [%s] %s %s %q: %s -> %s\n",
				m.Class, m.AccountCode, m.Date, m.Prefix,
				m.Current.StringFixed(2), m.Expected.StringFixed(2))
		}
	}

	for _, err := range result.Errors {
		fmt.Printf("   ❌ %v\n", err)
	}
}

func applySuffix(dryRun bool) string {
	if dryRun {
		return " (would apply)"
	}
	return ""
}

func sampleSize(n int) int {
	if n > sampleLimit {
		return sampleLimit
	}
	return n
}

func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
