package scheduler

import (
	"context"
	"sync"
	"time"

	"ledger_system/internal/domain"
	"ledger_system/internal/notify"

	"github.com/stretchr/testify/mock"
)

// ScheduleStoreMock is a mock type for the ScheduleStore type
type ScheduleStoreMock struct {
	mock.Mock
}

func (m *ScheduleStoreMock) GetOrCreate(ctx context.Context, name string, defaultInterval int) (*domain.TaskSchedule, error) {
	ret := m.Called(ctx, name, defaultInterval)
	var entry *domain.TaskSchedule
	if v := ret.Get(0); v != nil {
		entry = v.(*domain.TaskSchedule)
	}
	return entry, ret.Error(1)
}

func (m *ScheduleStoreMock) UpdateLastRun(ctx context.Context, name string, at time.Time) error {
	return m.Called(ctx, name, at).Error(0)
}

// TransactionStoreMock is a mock type for the TransactionStore type
type TransactionStoreMock struct {
	mock.Mock
}

func (m *TransactionStoreMock) ListPending(ctx context.Context) ([]domain.Transaction, error) {
	ret := m.Called(ctx)
	var txs []domain.Transaction
	if v := ret.Get(0); v != nil {
		txs = v.([]domain.Transaction)
	}
	return txs, ret.Error(1)
}

func (m *TransactionStoreMock) SetStatus(ctx context.Context, id uint, status domain.TransactionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

// NotifierMock is a mock type for the Notifier type
type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(ctx context.Context, tx domain.Transaction) notify.Outcome {
	return m.Called(ctx, tx).Get(0).(notify.Outcome)
}

// JobMock is a mock type for the Job type
type JobMock struct {
	mock.Mock
	name string
}

func (m *JobMock) Name() string { return m.name }

func (m *JobMock) Run(ctx context.Context, now time.Time) error {
	return m.Called(ctx, now).Error(0)
}

// fakeClock is a settable clock for tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
