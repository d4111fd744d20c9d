package main

import (
	"ledger_system/internal/config"  // Custom import path (Config)
	"ledger_system/internal/db"      // Custom import path (Database)
	"ledger_system/internal/logging" // Logger setup

	"github.com/sirupsen/logrus" // Logging library
)

// Main entry point for migration
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	gdb, err := db.Open(cfg.DSN(), cfg.IsProd) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("%v", err) // Log fatal error if migration fails
	}
}
