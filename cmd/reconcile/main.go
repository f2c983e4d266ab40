package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/application/recon"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/cli"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/storage"
)

func main() {
	var flags cli.Flags
	flags.Register()
	source := flag.String("source", "", "Payment source to reconcile (empty = all configured sources)")
	transactionID := flag.String("transaction-id", "", "Only process this transaction (for debugging)")
	flag.Parse()

	cli.Banner("🔗 Transaction ↔ Invoice Reconciliation", flags.Apply)

	cfg, logger := flags.Setup("RECONCILE")

	fmt.Printf("💾 Using database: %s\n", cfg.Storage.DatabasePath)
	store, err := storage.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	fmt.Println("📅 Configuration:")
	fmt.Printf("   Source:           %s\n", orAll(*source))
	fmt.Printf("   Amount tolerance: %s\n", cfg.Reconcile.AmountTolerance)
	fmt.Printf("   Date windows:     %dd / %dd\n", cfg.Reconcile.DomainDateWindowDays, cfg.Reconcile.FallbackDateWindowDays)
	fmt.Printf("   Batch size:       %d\n", cfg.Reconcile.BatchSize)
	fmt.Println()

	orchestrator := recon.NewOrchestrator(store, cfg, logger)
	result, err := orchestrator.Run(context.Background(), recon.Options{
		Apply:         flags.Apply,
		Source:        *source,
		TransactionID: *transactionID,
	})
	if err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}

	cli.ReconSummary(result)

	if flags.Apply && result.Applied > 0 {
		fmt.Println("\n✅ Matches written to the ledger")
	}
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
