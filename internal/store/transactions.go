package store

import (
	"context"                       // Request scoped cancellation
	"errors"                        // Sentinel comparison
	"fmt"                           // Error wrapping
	"ledger_system/internal/domain" // Domain models
	"ledger_system/internal/utils"  // Cache helpers
	"time"                          // Filters and dashboard day bounds

	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact money sums
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// TransactionStore reads and mutates transactions. When a Redis client is set, every
// status change invalidates the cached views of the transaction.
type TransactionStore struct {
	db  *gorm.DB      // Database handle
	rdb *redis.Client // Optional cache to invalidate
}

// NewTransactionStore creates a TransactionStore. rdb may be nil.
func NewTransactionStore(db *gorm.DB, rdb *redis.Client) *TransactionStore {
	return &TransactionStore{db: db, rdb: rdb}
}

// TransactionFilter narrows an admin listing.
type TransactionFilter struct {
	UserID *uint                    // Owner filter
	Status domain.TransactionStatus // Status filter, "" for any
	From   *time.Time               // Created at or after
	To     *time.Time               // Created at or before
	Page                            // Pagination
}

// Dashboard summarizes the ledger for the admin console.
type Dashboard struct {
	UserCount        int64                `json:"user_count"`        // Registered users
	TransactionCount int64                `json:"transaction_count"` // All transactions
	DailyTotal       decimal.Decimal      `json:"daily_total"`       // Amount created today
	Recent           []domain.Transaction `json:"recent"`            // Latest transactions
}

// Create inserts a new transaction.
func (s *TransactionStore) Create(ctx context.Context, tx *domain.Transaction) error {
	if err := s.db.WithContext(ctx).Omit("User").Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	s.invalidateListings(ctx) // Listings and dashboard now miss a row
	return nil
}

// Get returns a transaction by id. A non-nil userID restricts the lookup to that owner.
func (s *TransactionStore) Get(ctx context.Context, id uint, userID *uint) (*domain.Transaction, error) {
	query := s.db.WithContext(ctx).Where("id = ?", id)
	if userID != nil {
		query = query.Where("user_id = ?", *userID) // Owner scope
	}
	var txs []domain.Transaction
	if err := query.Limit(1).Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	if len(txs) == 0 {
		return nil, ErrNotFound
	}
	return &txs[0], nil
}

// ListPending returns every pending transaction, oldest first, with its owner preloaded.
func (s *TransactionStore) ListPending(ctx context.Context) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.WithContext(ctx).
		Preload("User").                           // Owner's webhook URL
		Where("status = ?", domain.StatusPending). // Pending only
		Order("created_at asc").                   // Oldest first
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	return txs, nil
}

// SetStatus moves a pending transaction to status in a single conditional update.
// It returns ErrStatusConflict when the transaction has already left pending.
func (s *TransactionStore) SetStatus(ctx context.Context, id uint, status domain.TransactionStatus) error {
	if status == domain.StatusPending || !status.Valid() {
		return fmt.Errorf("%w: pending -> %q", ErrInvalidTransition, status)
	}
	res := s.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, domain.StatusPending). // Only from pending
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set status of transaction %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either missing or already moved on
		if _, err := s.Get(ctx, id, nil); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	s.invalidate(ctx, id) // Cached views show the old status
	return nil
}

// List returns one page of transactions matching the filter, newest first, and the total count.
func (s *TransactionStore) List(ctx context.Context, f TransactionFilter) ([]domain.Transaction, int64, error) {
	f.Page = f.Page.normalize()
	query := s.db.WithContext(ctx).Model(&domain.Transaction{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID) // Filter by owner
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status) // Filter by status
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From) // Filter by start date
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To) // Filter by end date
	}

	var total int64 // Total matching rows
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	var txs []domain.Transaction // Rows of the requested page
	if err := query.Order("created_at desc").Offset(f.offset()).Limit(f.PageSize).Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}

// Dashboard aggregates counts, the total amount created on the day of now, and the latest transactions.
func (s *TransactionStore) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	var d Dashboard
	if err := db.Model(&domain.User{}).Count(&d.UserCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&domain.Transaction{}).Count(&d.TransactionCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()) // Midnight of now
	var amounts []decimal.Decimal
	err := db.Model(&domain.Transaction{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayStart.AddDate(0, 0, 1)).
		Pluck("amount", &amounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum daily amounts: %w", err)
	}
	d.DailyTotal = decimal.Sum(decimal.Zero, amounts...) // Summed in Go to stay exact on every driver

	if err := db.Order("created_at desc").Limit(5).Find(&d.Recent).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recent transactions: %w", err)
	}
	return &d, nil
}

func (s *TransactionStore) invalidate(ctx context.Context, id uint) {
	if s.rdb == nil {
		return // Caching disabled
	}
	if err := utils.DeleteCache(ctx, s.rdb, utils.TransactionKey(id)); err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithFields(logrus.Fields{
			"transaction_id": id,          // Transaction whose cache is stale
			"error":          err.Error(), // Error message
		}).Warn("Failed to invalidate transaction cache")
	}
	s.invalidateListings(ctx)
}

func (s *TransactionStore) invalidateListings(ctx context.Context) {
	if s.rdb == nil {
		return // Caching disabled
	}
	if err := utils.DeletePrefix(ctx, s.rdb, utils.AdminTransactionKeyPrefix); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to invalidate transaction listings cache")
	}
	if err := utils.DeleteCache(ctx, s.rdb, utils.DashboardKey); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to invalidate dashboard cache")
	}
}
