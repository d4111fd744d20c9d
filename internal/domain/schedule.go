package domain

import "time"

// MaxIntervalSeconds bounds admin-supplied intervals that are not on the allow-list.
const MaxIntervalSeconds = 24 * 60 * 60

// AllowedIntervals are the poll intervals offered by the admin console. Zero disables the job.
var AllowedIntervals = []int{0, 10, 15, 30, 60}

// TaskSchedule is the persisted schedule of one named job.
type TaskSchedule struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TaskName        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"task_name"`
	IntervalSeconds int        `gorm:"not null" json:"interval_seconds"`
	LastRun         *time.Time `json:"last_run"`
}

// Interval returns the poll interval as a duration.
func (s TaskSchedule) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Due reports whether the job should run at now. A non-positive interval is never due;
// a job that has never run is due immediately.
func (s TaskSchedule) Due(now time.Time) bool {
	if s.IntervalSeconds <= 0 {
		return false
	}
	if s.LastRun == nil {
		return true
	}
	return now.Sub(*s.LastRun) >= s.Interval()
}

// ValidateInterval accepts the allow-listed values or any positive value up to MaxIntervalSeconds.
func ValidateInterval(seconds int) error {
	for _, allowed := range AllowedIntervals {
		if seconds == allowed {
			return nil
		}
	}
	if seconds <= 0 || seconds > MaxIntervalSeconds {
		return ErrInvalidInterval
	}
	return nil
}
