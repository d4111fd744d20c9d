// Package expiry decides when a pending transaction has waited too long.
package expiry

import (
	"ledger_system/internal/domain" // Transaction model
	"time"                          // Ages and timeouts
)

// DefaultTimeout is how long a transaction may stay pending.
const DefaultTimeout = 15 * time.Minute

// Decision is the outcome of classifying a transaction.
type Decision int

const (
	Keep Decision = iota // Leave the transaction as it is
	Expire               // Move the transaction to expired
)

func (d Decision) String() string {
	if d == Expire {
		return "expire"
	}
	return "keep"
}

// Classify returns Expire when tx is pending and at least timeout has passed since it was created.
func Classify(tx domain.Transaction, now time.Time, timeout time.Duration) Decision {
	if tx.Status != domain.StatusPending {
		return Keep // Terminal statuses never change
	}
	if now.Sub(tx.CreatedAt) >= timeout {
		return Expire // Boundary is inclusive
	}
	return Keep
}
