package domain

import (
	"time" // Creation timestamp

	"github.com/shopspring/decimal" // Exact decimal arithmetic for money
)

// TransactionStatus is the lifecycle state of a transaction
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"   // Awaiting confirmation or timeout
	StatusConfirmed TransactionStatus = "confirmed" // Confirmed by an administrator
	StatusCanceled  TransactionStatus = "canceled"  // Canceled by its owner
	StatusExpired   TransactionStatus = "expired"   // Left pending past the timeout
)

// Statuses lists every status in display order
var Statuses = []TransactionStatus{StatusPending, StatusConfirmed, StatusCanceled, StatusExpired}

// Valid reports whether s is a known status
func (s TransactionStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Transaction Model
type Transaction struct {
	ID         uint              `gorm:"primaryKey" json:"id"`                                          // Primary key
	UserID     uint              `gorm:"not null;index" json:"user_id"`                                 // Owner of the transaction
	User       User              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`        // Owner, preloaded when needed
	Amount     decimal.Decimal   `gorm:"type:decimal(20,8);not null" json:"amount"`                     // Amount, always positive
	Commission decimal.Decimal   `gorm:"type:decimal(20,8);not null" json:"commission"`                 // Frozen at creation
	Status     TransactionStatus `gorm:"type:varchar(50);not null;default:pending;index" json:"status"` // Lifecycle state
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`                              // Set once at creation
}

// NewTransaction builds a pending transaction for the owner, computing the commission
// from the owner's current commission rate
func NewTransaction(owner User, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount // Amount must be greater than 0
	}
	return Transaction{
		UserID:     owner.ID,                         // Owner reference
		Amount:     amount,                           // Requested amount
		Commission: amount.Mul(owner.CommissionRate), // Commission frozen from here on
		Status:     StatusPending,                    // Every transaction starts pending
	}, nil
}
