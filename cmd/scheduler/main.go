package main

import (
	"context"                          // Root context
	"ledger_system/internal/config"    // Custom package for configuration
	"ledger_system/internal/db"        // Database and Redis connections
	"ledger_system/internal/logging"   // Logger setup
	"ledger_system/internal/notify"    // Webhook dispatcher
	"ledger_system/internal/scheduler" // Lifecycle scheduler
	"ledger_system/internal/store"     // Persistence layer
	"os"                               // Signals
	"os/signal"                        // Signal handling
	"syscall"                          // SIGTERM

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main runs the transaction lifecycle scheduler until interrupted
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat) // Setup logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.DSN(), cfg.IsProd) // Connect to the database
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	// Redis only serves cache invalidation, so the scheduler runs without it
	txStore := store.NewTransactionStore(gdb, nil)
	if redisClient, err := db.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB); err != nil {
		logrus.WithField("error", err.Error()).Warn("Redis unavailable, cached views will expire by TTL")
	} else {
		defer redisClient.Close()
		txStore = store.NewTransactionStore(gdb, redisClient)
	}

	log := logrus.StandardLogger()
	expiryJob := scheduler.NewExpiryJob(scheduler.ExpiryOptions{
		Name:         cfg.ExpiryJobName,                             // Schedule row name
		Transactions: txStore,                                       // Pending transactions
		Notifier:     notify.NewDispatcher(cfg.WebhookTimeout, log), // Owner webhooks
		Timeout:      cfg.PendingTimeout,                            // Expiry age
		Workers:      cfg.Workers,                                   // Parallel rows
		Log:          log,
	})
	s := scheduler.New(scheduler.Options{
		Schedules:              store.NewScheduleStore(gdb), // Persisted schedules
		Jobs:                   []scheduler.Job{expiryJob},  // Registered jobs
		TickInterval:           cfg.TickInterval,            // Wake-up cadence
		DefaultIntervalSeconds: cfg.DefaultIntervalSeconds,  // Interval of new schedules
		Log:                    log,
	})

	logrus.WithFields(logrus.Fields{
		"tick":            cfg.TickInterval.String(),   // Wake-up cadence
		"pending_timeout": cfg.PendingTimeout.String(), // Expiry age
		"workers":         cfg.Workers,                 // Parallel rows
	}).Info("Scheduler configured")
	s.Run(ctx) // Blocks until a shutdown signal, then waits for the running pass
	logrus.Info("Scheduler exited")
}
