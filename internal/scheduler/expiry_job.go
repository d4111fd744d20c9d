package scheduler

import (
	"context"                       // Pass cancellation
	"errors"                        // Sentinel comparison
	"fmt"                           // Error wrapping
	"ledger_system/internal/domain" // Transaction model
	"ledger_system/internal/expiry" // Expiry classification
	"ledger_system/internal/notify" // Notification outcomes
	"ledger_system/internal/store"  // Status conflict sentinel
	"sync/atomic"                   // Pass counters
	"time"                          // Pass time and timeout

	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/sync/errgroup" // Bounded worker pool
)

// ExpiryJobName is the schedule name of the expiry job.
const ExpiryJobName = "check_expired_transactions"

// TransactionStore is the part of the transaction store the expiry job needs.
type TransactionStore interface {
	ListPending(ctx context.Context) ([]domain.Transaction, error)
	SetStatus(ctx context.Context, id uint, status domain.TransactionStatus) error
}

// Notifier sends a best-effort notification about a transaction.
type Notifier interface {
	Notify(ctx context.Context, tx domain.Transaction) notify.Outcome
}

// ExpiryOptions configures an ExpiryJob.
type ExpiryOptions struct {
	Name         string             // Schedule name, ExpiryJobName when empty
	Transactions TransactionStore   // Pending lookup and status writes
	Notifier     Notifier           // Owner notifications
	Timeout      time.Duration      // Pending lifetime
	Workers      int                // Rows handled in parallel
	Log          logrus.FieldLogger // Pass logger
}

// ExpiryJob expires transactions left pending past the timeout and notifies their owners.
type ExpiryJob struct {
	name     string
	txs      TransactionStore
	notifier Notifier
	timeout  time.Duration
	workers  int
	log      logrus.FieldLogger
}

// NewExpiryJob creates an ExpiryJob, filling unset options with defaults.
func NewExpiryJob(opts ExpiryOptions) *ExpiryJob {
	j := &ExpiryJob{
		name:     opts.Name,
		txs:      opts.Transactions,
		notifier: opts.Notifier,
		timeout:  opts.Timeout,
		workers:  opts.Workers,
		log:      opts.Log,
	}
	if j.name == "" {
		j.name = ExpiryJobName
	}
	if j.timeout <= 0 {
		j.timeout = expiry.DefaultTimeout
	}
	if j.workers <= 0 {
		j.workers = 1 // Sequential
	}
	if j.log == nil {
		j.log = logrus.StandardLogger()
	}
	return j
}

// Name implements Job.
func (j *ExpiryJob) Name() string {
	return j.name
}

// passReport counts row outcomes of one pass
type passReport struct {
	scanned       atomic.Int64 // Pending rows loaded
	expired       atomic.Int64 // Rows moved to expired
	conflicts     atomic.Int64 // Rows that left pending first
	persistFailed atomic.Int64 // Failed status writes
	delivered     atomic.Int64 // Webhooks accepted
	skipped       atomic.Int64 // Owners without a webhook
	notifyFailed  atomic.Int64 // Failed webhooks
}

// Run expires every pending transaction older than the timeout at now. Rows are handled
// in parallel; each row is persisted before its owner is notified. A failed row stays
// pending for the next pass. Run fails only when the pending set cannot be loaded or
// ctx is canceled before the pass completes.
func (j *ExpiryJob) Run(ctx context.Context, now time.Time) error {
	pending, err := j.txs.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to query pending transactions: %w", err)
	}

	// Status writes already issued complete even during shutdown
	storeCtx := context.WithoutCancel(ctx)
	var report passReport
	report.scanned.Store(int64(len(pending)))

	var g errgroup.Group
	g.SetLimit(j.workers) // Bound concurrent rows
	for _, tx := range pending {
		if expiry.Classify(tx, now, j.timeout) != expiry.Expire {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		tx := tx // Per-iteration copy for the worker (go 1.21 loop semantics)
		g.Go(func() error {
			j.expire(ctx, storeCtx, tx, &report)
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors

	j.log.WithFields(logrus.Fields{
		"job":            j.name,                      // Schedule name
		"scanned":        report.scanned.Load(),       // Pending rows
		"expired":        report.expired.Load(),       // Expired rows
		"conflicts":      report.conflicts.Load(),     // Lost races
		"persist_failed": report.persistFailed.Load(), // Failed writes
		"delivered":      report.delivered.Load(),     // Sent webhooks
		"skipped":        report.skipped.Load(),       // No webhook
		"notify_failed":  report.notifyFailed.Load(),  // Failed webhooks
	}).Info("Expiry pass finished")

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("expiry pass interrupted: %w", err)
	}
	return nil
}

func (j *ExpiryJob) expire(ctx, storeCtx context.Context, tx domain.Transaction, report *passReport) {
	// Not yet started when shutdown began: leave it for the next pass
	if ctx.Err() != nil {
		return
	}
	log := j.log.WithFields(logrus.Fields{
		"job":            j.name,    // Schedule name
		"transaction_id": tx.ID,     // Transaction ID
		"user_id":        tx.UserID, // Owner
	})

	if err := j.txs.SetStatus(storeCtx, tx.ID, domain.StatusExpired); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			report.conflicts.Add(1)
			log.Info("Transaction left pending before expiry, skipped")
			return
		}
		report.persistFailed.Add(1)
		log.WithField("error", err.Error()).Error("Failed to expire transaction")
		return
	}
	report.expired.Add(1)
	log.Info("Transaction expired")

	tx.Status = domain.StatusExpired // Payload carries the new status
	switch j.notifier.Notify(ctx, tx) {
	case notify.Delivered:
		report.delivered.Add(1)
	case notify.Skipped:
		report.skipped.Add(1)
	default:
		report.notifyFailed.Add(1)
	}
}
