package repository

import (
	"context"
	"database/sql"

	"campusbook/auth/internal/audit/domain"
)

// SQLiteRepository is the SQLite variant of the login attempt repository.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a login attempt repository backed by SQLite.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, a *domain.LoginAttempt) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_attempts (id, email, ip_address, user_agent, success, failure_reason, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.IPAddress, a.UserAgent, a.Success, a.FailureReason, a.AttemptedAt)
	return err
}
