package main

import (
	"context"                        // Shutdown deadline
	"errors"                         // Sentinel comparison
	"ledger_system/internal/api"     // Custom package for API handlers
	"ledger_system/internal/config"  // Custom package for configuration
	"ledger_system/internal/db"      // Database and Redis connections
	"ledger_system/internal/logging" // Logger setup
	"ledger_system/internal/store"   // Persistence layer
	"net/http"                       // HTTP server
	"os"                             // Signals
	"os/signal"                      // Signal handling
	"syscall"                        // SIGTERM
	"time"                           // Timeouts

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main function to set up and run the server
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
	redisClient, err := db.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB) // Connect to Redis
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	defer redisClient.Close()

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default() // Gin router instance
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	api.RegisterRoutes(r, api.Deps{
		Users:        store.NewUserStore(gdb),                     // User persistence
		Transactions: store.NewTransactionStore(gdb, redisClient), // Transactions with cache invalidation
		Schedules:    store.NewScheduleStore(gdb),                 // Job schedules
		Redis:        redisClient,                                 // Response cache
		JWTSecret:    cfg.JWTSecret,                               // Token signing key
		CacheTTL:     cfg.CacheTTL,                                // Cache lifetime

		Jobs:                   []string{cfg.ExpiryJobName}, // Schedules editable from the admin API
		DefaultIntervalSeconds: cfg.DefaultIntervalSeconds,  // Interval of a schedule created on first edit
	})

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done() // Wait for a shutdown signal
	logrus.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
}
