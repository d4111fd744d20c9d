package store

import (
	"context"                       // Request scoped cancellation
	"fmt"                           // Error wrapping
	"ledger_system/internal/domain" // Domain models

	"github.com/shopspring/decimal" // Commission rates
	"gorm.io/gorm"                  // GORM ORM library
)

// UserStore persists users.
type UserStore struct {
	db *gorm.DB // Database handle
}

// UserUpdate holds the admin-editable user settings. Nil fields are left unchanged;
// an empty WebhookURL removes the webhook.
type UserUpdate struct {
	CommissionRate *decimal.Decimal // New commission rate
	WebhookURL     *string          // New webhook URL, "" to clear
}

// NewUserStore creates a UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user, returning ErrDuplicate when the username is taken.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	if _, err := s.GetByUsername(ctx, u.Username); err == nil {
		return ErrDuplicate
	} else if err != ErrNotFound {
		return err
	}
	if u.Role == "" {
		u.Role = domain.RoleRegular // Default role
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user %q: %w", u.Username, err)
	}
	return nil
}

// GetByID returns the user with id.
func (s *UserStore) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return s.first(ctx, "id = ?", id)
}

// GetByUsername returns the user named username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.first(ctx, "username = ?", username)
}

// List returns one page of users ordered by id and the total count.
func (s *UserStore) List(ctx context.Context, p Page) ([]domain.User, int64, error) {
	p = p.normalize()
	var total int64 // Total user count
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	var users []domain.User // Users of the requested page
	if err := s.db.WithContext(ctx).Order("id asc").Offset(p.offset()).Limit(p.PageSize).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// Update applies the non-nil fields of upd to the user with id and returns the updated user.
func (s *UserStore) Update(ctx context.Context, id uint, upd UserUpdate) (*domain.User, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err // ErrNotFound for unknown users
	}
	fields := map[string]any{} // Columns to write
	if upd.CommissionRate != nil {
		if err := domain.ValidateCommissionRate(*upd.CommissionRate); err != nil {
			return nil, err
		}
		fields["commission_rate"] = *upd.CommissionRate
	}
	if upd.WebhookURL != nil {
		if *upd.WebhookURL == "" {
			fields["webhook_url"] = nil // Clear the webhook
		} else {
			fields["webhook_url"] = *upd.WebhookURL
		}
	}
	if len(fields) > 0 {
		if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("failed to update user %d: %w", id, err)
		}
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) first(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var users []domain.User
	if err := s.db.WithContext(ctx).Where(cond, arg).Limit(1).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrNotFound // No matching user
	}
	return &users[0], nil
}
