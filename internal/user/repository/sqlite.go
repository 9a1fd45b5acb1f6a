package repository

import (
	"context"
	"database/sql"
	"time"

	"campusbook/auth/internal/user/domain"
)

// SQLiteRepository is the SQLite variant of the user repository.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a user repository backed by the given SQLite handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *SQLiteRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, first_name, last_name, phone_number, is_active, created_at, last_login_ip)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.PasswordHash,
		u.FirstName, u.LastName, u.PhoneNumber, u.IsActive, u.CreatedAt, u.LastLoginIP)
	return err
}

func (r *SQLiteRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, last_login_ip = ? WHERE id = ?`, at, ip, id)
	return err
}
