package domain

import "github.com/shopspring/decimal" // Exact decimal arithmetic for money

const (
	RoleRegular = "regular" // Default role
	RoleAdmin   = "admin"   // Administrator role
)

// DefaultCommissionRate applies to newly registered users
var DefaultCommissionRate = decimal.RequireFromString("0.03")

// User Model
type User struct {
	ID             uint            `gorm:"primaryKey" json:"id"`                                   // Primary key
	Username       string          `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"` // Unique username
	Password       string          `gorm:"not null" json:"-"`                                      // Hashed password
	Role           string          `gorm:"type:varchar(50);default:regular;not null" json:"role"`  // Role: regular or admin
	Balance        decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"`   // Account balance
	CommissionRate decimal.Decimal `gorm:"type:decimal(10,6);not null" json:"commission_rate"`     // Fraction charged at transaction creation
	WebhookURL     *string         `gorm:"type:varchar(255)" json:"webhook_url"`                   // Callback for status notifications, optional
}

// IsAdmin reports whether the user has the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Webhook returns the user's webhook URL, or "" when none is registered
func (u User) Webhook() string {
	if u.WebhookURL == nil {
		return ""
	}
	return *u.WebhookURL
}

// ValidateCommissionRate accepts rates between 0 and 1 inclusive
func ValidateCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidCommissionRate
	}
	return nil
}
