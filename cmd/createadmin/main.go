package main

import (
	"context"                        // Store calls
	"flag"                           // Command line flags
	"ledger_system/internal/config"  // Custom package for configuration
	"ledger_system/internal/db"      // Database connection
	"ledger_system/internal/domain"  // Domain models
	"ledger_system/internal/logging" // Logger setup
	"ledger_system/internal/store"   // Persistence layer
	"strings"                        // String manipulation

	"github.com/shopspring/decimal" // Commission rate
	"github.com/sirupsen/logrus"    // Logrus for structured logging
	"golang.org/x/crypto/bcrypt"    // Password hashing
)

// Main creates an administrator account
func main() {
	username := flag.String("username", "", "admin username")
	password := flag.String("password", "", "admin password")
	flag.Parse()
	if *username == "" || *password == "" {
		flag.Usage()
		logrus.Fatal("username and password are required")
	}

	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	gdb, err := db.Open(cfg.DSN(), cfg.IsProd) // Connect to the database
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		logrus.Fatalf("failed to hash password: %v", err)
	}
	admin := domain.User{
		Username:       strings.ToLower(*username), // Stored lowercase like registered users
		Password:       string(hash),               // Hashed password
		Role:           domain.RoleAdmin,           // Administrator
		CommissionRate: decimal.Zero,               // Admins pay no commission
	}
	if err := store.NewUserStore(gdb).Create(context.Background(), &admin); err != nil {
		logrus.Fatalf("failed to create admin: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  admin.ID,       // New admin
		"username": admin.Username, // Username
	}).Info("Admin created")
}
