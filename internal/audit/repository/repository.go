package repository

import (
	"context"

	"campusbook/auth/internal/audit/domain"
)

// Repository defines persistence for login attempt records.
type Repository interface {
	Create(ctx context.Context, a *domain.LoginAttempt) error
}
