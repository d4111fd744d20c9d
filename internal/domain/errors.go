package domain

import "errors" // Sentinel errors

var (
	ErrInvalidAmount         = errors.New("amount must be greater than 0")                                             // Non-positive transaction amount
	ErrInvalidInterval       = errors.New("interval must be one of the allowed values or between 1 and 86400 seconds") // Rejected schedule interval
	ErrInvalidCommissionRate = errors.New("commission rate must be between 0 and 1")                                   // Rate outside [0, 1]
)
