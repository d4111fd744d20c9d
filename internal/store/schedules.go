package store

import (
	"context"                       // Request scoped cancellation
	"fmt"                           // Error wrapping
	"ledger_system/internal/domain" // Domain models
	"time"                          // Last run timestamps

	"gorm.io/gorm" // GORM ORM library
)

// ScheduleStore persists the schedule of named jobs.
type ScheduleStore struct {
	db *gorm.DB // Database handle
}

// NewScheduleStore creates a ScheduleStore.
func NewScheduleStore(db *gorm.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// GetOrCreate returns the schedule of name, creating it with defaultInterval and no
// last run when it does not exist yet.
func (s *ScheduleStore) GetOrCreate(ctx context.Context, name string, defaultInterval int) (*domain.TaskSchedule, error) {
	entry, err := s.find(ctx, name)
	if err == nil || err != ErrNotFound {
		return entry, err // Found, or the lookup itself failed
	}

	created := domain.TaskSchedule{TaskName: name, IntervalSeconds: defaultInterval} // Never run yet
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		// Another writer may have created it first
		if entry, findErr := s.find(ctx, name); findErr == nil {
			return entry, nil
		}
		return nil, fmt.Errorf("failed to create schedule %q: %w", name, err)
	}
	return &created, nil
}

// UpdateLastRun records the time of the latest completed pass of name.
func (s *ScheduleStore) UpdateLastRun(ctx context.Context, name string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&domain.TaskSchedule{}).
		Where("task_name = ?", name).
		Update("last_run", at)
	if res.Error != nil {
		return fmt.Errorf("failed to update last run of %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound // No schedule with that name
	}
	return nil
}

// SetInterval validates and stores the poll interval of an existing schedule.
// It returns ErrNotFound when name has no schedule.
func (s *ScheduleStore) SetInterval(ctx context.Context, name string, seconds int) (*domain.TaskSchedule, error) {
	if err := domain.ValidateInterval(seconds); err != nil {
		return nil, err // Untrusted admin input
	}
	entry, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}
	if entry.IntervalSeconds == seconds {
		return entry, nil // Nothing to change
	}
	err = s.db.WithContext(ctx).
		Model(&domain.TaskSchedule{}).
		Where("id = ?", entry.ID).
		Update("interval_seconds", seconds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update interval of %q: %w", name, err)
	}
	entry.IntervalSeconds = seconds
	return entry, nil
}

// List returns every schedule ordered by name.
func (s *ScheduleStore) List(ctx context.Context) ([]domain.TaskSchedule, error) {
	var entries []domain.TaskSchedule
	if err := s.db.WithContext(ctx).Order("task_name asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return entries, nil
}

func (s *ScheduleStore) find(ctx context.Context, name string) (*domain.TaskSchedule, error) {
	var entries []domain.TaskSchedule
	// Find with a limit avoids gorm's record-not-found log line on a miss
	if err := s.db.WithContext(ctx).Where("task_name = ?", name).Limit(1).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load schedule %q: %w", name, err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}
