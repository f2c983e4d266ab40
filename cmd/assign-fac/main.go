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
	source := flag.String("source", "", "Payment source to code (empty = all)")
	flag.Parse()

	cli.Banner("🏦 Financial Account Code Assignment", flags.Apply)

	cfg, logger := flags.Setup("ASSIGN-FAC")

	fmt.Printf("💾 Using database: %s\n", cfg.Storage.DatabasePath)
	store, err := storage.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	orchestrator := recon.NewOrchestrator(store, cfg, logger)
	result, err := orchestrator.AssignCodes(context.Background(), recon.Options{
		Apply:  flags.Apply,
		Source: *source,
	})
	if err != nil {
		log.Fatalf("Assignment failed: %v", err)
	}

	cli.AssignSummary(result)

	if flags.Apply && result.Assigned > 0 {
		fmt.Println("\n✅ Account codes written")
	}
}
