// Package cli carries the flag and output conventions shared by the
// batch commands. Every command defaults to a dry-run preview; --apply
// is the single switch that makes a run write.
package cli

import (
	"flag"
	"log/slog"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/config"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/logging"
)

// Flags holds the options every batch command shares
type Flags struct {
	ConfigPath string
	Apply      bool
	Verbose    bool
}

// Register wires the shared flags into the default flag set. Call
// flag.Parse afterwards, once the command's own flags are registered too.
func (f *Flags) Register() {
	flag.StringVar(&f.ConfigPath, "config", "config.yaml", "Configuration file path (falls back to environment)")
	flag.BoolVar(&f.Apply, "apply", false, "Apply changes (default is dry-run preview)")
	flag.BoolVar(&f.Verbose, "verbose", false, "Enable verbose logging")
}

// Setup loads configuration and builds the logger for a command
func (f *Flags) Setup(system string) (*config.Config, *slog.Logger) {
	cfg := config.LoadOrEnvWithPath(f.ConfigPath)
	logCfg := cfg.Observability.Logging
	if f.Verbose {
		logCfg.Level = "debug"
	}
	return cfg, logging.NewLoggerWithSystem(logCfg, system)
}
