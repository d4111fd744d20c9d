package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger_system/internal/domain"
	"ledger_system/internal/notify"
	"ledger_system/internal/store"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingTx(id uint, age time.Duration) domain.Transaction {
	return domain.Transaction{ID: id, UserID: 100 + id, Status: domain.StatusPending, CreatedAt: t0.Add(-age)}
}

func expiredID(id uint) any {
	return mock.MatchedBy(func(tx domain.Transaction) bool {
		return tx.ID == id && tx.Status == domain.StatusExpired
	})
}

func newTestExpiryJob(txs TransactionStore, notifier Notifier) *ExpiryJob {
	logger, _ := logtest.NewNullLogger()
	return NewExpiryJob(ExpiryOptions{
		Transactions: txs,
		Notifier:     notifier,
		Timeout:      15 * time.Minute,
		Workers:      4,
		Log:          logger,
	})
}

func TestExpiryJob(t *testing.T) {
	ctx := context.Background()

	t.Run("Expires Only Due Pending Transactions", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		old := pendingTx(1, 20*time.Minute)
		fresh := pendingTx(2, 14*time.Minute+59*time.Second)
		confirmed := pendingTx(3, time.Hour)
		confirmed.Status = domain.StatusConfirmed
		canceled := pendingTx(4, time.Hour)
		canceled.Status = domain.StatusCanceled

		txs.On("ListPending", mock.Anything).Return([]domain.Transaction{old, fresh, confirmed, canceled}, nil)
		txs.On("SetStatus", mock.Anything, uint(1), domain.StatusExpired).Return(nil)
		notifier.On("Notify", mock.Anything, expiredID(1)).Return(notify.Delivered)

		require.NoError(t, job.Run(ctx, t0))

		txs.AssertExpectations(t)
		notifier.AssertExpectations(t)
		txs.AssertNumberOfCalls(t, "SetStatus", 1)
		notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("Expires At Exactly The Timeout", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		txs.On("ListPending", mock.Anything).Return([]domain.Transaction{pendingTx(1, 15*time.Minute)}, nil)
		txs.On("SetStatus", mock.Anything, uint(1), domain.StatusExpired).Return(nil)
		notifier.On("Notify", mock.Anything, expiredID(1)).Return(notify.Delivered)

		require.NoError(t, job.Run(ctx, t0))
		notifier.AssertExpectations(t)
	})

	t.Run("Notification Failure Does Not Block Others", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		txs.On("ListPending", mock.Anything).Return([]domain.Transaction{pendingTx(1, time.Hour), pendingTx(2, time.Hour)}, nil)
		txs.On("SetStatus", mock.Anything, uint(1), domain.StatusExpired).Return(nil)
		txs.On("SetStatus", mock.Anything, uint(2), domain.StatusExpired).Return(nil)
		notifier.On("Notify", mock.Anything, expiredID(1)).Return(notify.Failed)
		notifier.On("Notify", mock.Anything, expiredID(2)).Return(notify.Delivered)

		require.NoError(t, job.Run(ctx, t0))

		txs.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("Persist Failure Skips Notification", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		txs.On("ListPending", mock.Anything).Return([]domain.Transaction{pendingTx(1, time.Hour), pendingTx(2, time.Hour)}, nil)
		txs.On("SetStatus", mock.Anything, uint(1), domain.StatusExpired).Return(errors.New("deadlock"))
		txs.On("SetStatus", mock.Anything, uint(2), domain.StatusExpired).Return(nil)
		notifier.On("Notify", mock.Anything, expiredID(2)).Return(notify.Skipped)

		require.NoError(t, job.Run(ctx, t0), "a row failure does not fail the pass")

		notifier.AssertNotCalled(t, "Notify", mock.Anything, expiredID(1))
		notifier.AssertExpectations(t)
	})

	t.Run("Concurrent Status Change Is Not Notified", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		txs.On("ListPending", mock.Anything).Return([]domain.Transaction{pendingTx(1, time.Hour)}, nil)
		txs.On("SetStatus", mock.Anything, uint(1), domain.StatusExpired).Return(store.ErrStatusConflict)

		require.NoError(t, job.Run(ctx, t0))
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})

	t.Run("Query Failure Fails The Pass", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		txs.On("ListPending", mock.Anything).Return(nil, errors.New("connection reset"))

		err := job.Run(ctx, t0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query pending transactions")
		txs.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Nothing Due Makes No Writes", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		txs.On("ListPending", mock.Anything).Return([]domain.Transaction{pendingTx(1, time.Minute)}, nil)

		require.NoError(t, job.Run(ctx, t0))
		require.NoError(t, job.Run(ctx, t0))

		txs.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})

	t.Run("Canceled Pass Leaves Rows Pending", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		txs.On("ListPending", mock.Anything).Return([]domain.Transaction{pendingTx(1, time.Hour)}, nil)

		assert.ErrorIs(t, job.Run(canceled, t0), context.Canceled)
		txs.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Status Write Outlives Shutdown", func(t *testing.T) {
		txs := new(TransactionStoreMock)
		notifier := new(NotifierMock)
		job := newTestExpiryJob(txs, notifier)

		runCtx, cancel := context.WithCancel(ctx)
		txs.On("ListPending", mock.Anything).Return([]domain.Transaction{pendingTx(1, time.Hour)}, nil)
		txs.On("SetStatus", mock.MatchedBy(func(c context.Context) bool {
			cancel() // shutdown begins while the write is in flight
			return c.Err() == nil
		}), uint(1), domain.StatusExpired).Return(nil)
		notifier.On("Notify", mock.Anything, expiredID(1)).Return(notify.Failed)

		assert.ErrorIs(t, job.Run(runCtx, t0), context.Canceled, "interrupted pass does not advance the schedule")
		txs.AssertExpectations(t)
	})
}

func TestNewExpiryJobDefaults(t *testing.T) {
	job := NewExpiryJob(ExpiryOptions{})
	assert.Equal(t, ExpiryJobName, job.Name())
	assert.Equal(t, 15*time.Minute, job.timeout)
	assert.Equal(t, 1, job.workers)
}
