package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/application/repair"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/cli"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/storage"
)

func main() {
	var flags cli.Flags
	flags.Register()
	extract := flag.String("extract", "", "Path to the authoritative accounting extract (.xlsx or .csv)")
	flag.Parse()

	cli.Banner("🩹 Ledger Repair Pass", flags.Apply)

	if *extract == "" {
		log.Fatalf("Missing required -extract flag")
	}

	cfg, logger := flags.Setup("REPAIR")

	fmt.Printf("💾 Using database: %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("📄 Extract: %s\n\n", *extract)
	store, err := storage.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	pass := repair.NewPass(store, cfg, logger)
	result, err := pass.Run(context.Background(), repair.Options{
		ExtractPath: *extract,
		Apply:       flags.Apply,
	})
	if err != nil {
		log.Fatalf("Repair pass failed: %v", err)
	}

	cli.RepairSummary(result)

	if flags.Apply && result.Corrected > 0 {
		fmt.Println("\n✅ Corrections written to the ledger")
	}
}
