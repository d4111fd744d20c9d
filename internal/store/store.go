// Package store persists users, transactions and job schedules with GORM.
package store

import "errors" // Sentinel errors

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict is returned when a transaction has already left the pending state.
	ErrStatusConflict = errors.New("transaction is no longer pending")

	// ErrInvalidTransition is returned for a target status a pending transaction cannot move to.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicate is returned when a unique value is already taken.
	ErrDuplicate = errors.New("record already exists")
)

const (
	defaultPageSize = 20  // Page size when none is requested
	maxPageSize     = 100 // Largest page a caller may request
)

// Page is a 1-based page request.
type Page struct {
	Page     int // Page number, starting at 1
	PageSize int // Rows per page
}

func (p Page) normalize() Page {
	if p.Page <= 0 {
		p.Page = 1 // Default to the first page
	}
	if p.PageSize <= 0 || p.PageSize > maxPageSize {
		p.PageSize = defaultPageSize // Out of range sizes fall back to the default
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.PageSize // Rows to skip
}
