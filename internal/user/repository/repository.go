package repository

import (
	"context"
	"time"

	"campusbook/auth/internal/user/domain"
)

// Repository defines persistence for user accounts.
type Repository interface {
	// GetByID returns the user for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns the user for email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByUsername returns the user for username, or nil if not found.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpdateLastLogin records the time and source IP of a successful login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error
}
