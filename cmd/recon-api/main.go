package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/api"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/config"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/logging"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Configuration file path (falls back to environment)")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "API")

	store, err := storage.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	server := api.NewServer(cfg.API, store, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
