package config

import (
	"errors" // Validation errors
	"fmt"    // Error wrapping
	"time"   // Durations for scheduler settings

	"github.com/caarlos0/env/v11" // Struct-tag based env parsing
	"github.com/joho/godotenv"    // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string `env:"APP_PORT" envDefault:"8080"`             // Application port
	DBUser     string `env:"DB_USER"`                                // Database user
	DBPassword string `env:"DB_PASSWORD"`                            // Database password
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`         // Database host
	DBPort     string `env:"DB_PORT" envDefault:"3306"`              // Database port
	DBName     string `env:"DB_NAME" envDefault:"ledger"`            // Database name
	JWTSecret  string `env:"JWT_SECRET"`                             // JWT secret key
	RedisAddr  string `env:"REDIS_ADDR" envDefault:"localhost:6379"` // Redis server address
	RedisPass  string `env:"REDIS_PASS"`                             // Redis password
	RedisDB    int    `env:"REDIS_DB" envDefault:"0"`                // Redis database number
	IsProd     bool   `env:"IS_PROD" envDefault:"false"`             // Is production environment
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`            // Log level: debug, info, warn, error
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`           // Log format: text or json

	TickInterval           time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`                           // Scheduler wake-up cadence
	PendingTimeout         time.Duration `env:"PENDING_TIMEOUT" envDefault:"15m"`                        // Age at which a pending transaction expires
	WebhookTimeout         time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"800ms"`                      // Timeout for a single webhook POST
	DefaultIntervalSeconds int           `env:"DEFAULT_INTERVAL_SECONDS" envDefault:"60"`                // Interval for lazily created schedules
	Workers                int           `env:"SCHEDULER_WORKERS" envDefault:"4"`                        // Parallel rows per pass
	ExpiryJobName          string        `env:"EXPIRY_JOB_NAME" envDefault:"check_expired_transactions"` // Schedule row name of the expiry job
	CacheTTL               time.Duration `env:"CACHE_TTL" envDefault:"60s"`                              // Redis cache lifetime
}

// LoadConfig loads configuration from the environment, after an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the relations between scheduler settings
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("TICK_INTERVAL must be positive")
	}
	if c.PendingTimeout <= 0 {
		return errors.New("PENDING_TIMEOUT must be positive")
	}
	// Webhook calls must finish before the next tick could start a new pass
	if c.WebhookTimeout <= 0 || c.WebhookTimeout >= c.TickInterval {
		return fmt.Errorf("WEBHOOK_TIMEOUT (%s) must be positive and shorter than TICK_INTERVAL (%s)", c.WebhookTimeout, c.TickInterval)
	}
	if c.DefaultIntervalSeconds < 0 {
		return errors.New("DEFAULT_INTERVAL_SECONDS must not be negative")
	}
	if c.Workers <= 0 {
		return errors.New("SCHEDULER_WORKERS must be positive")
	}
	if c.ExpiryJobName == "" {
		return errors.New("EXPIRY_JOB_NAME must not be empty")
	}
	return nil
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}
