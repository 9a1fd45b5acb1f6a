package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"campusbook/auth/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, username, password_hash, first_name, last_name, phone_number, is_active, created_at, last_login_at, last_login_ip`

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var lastLoginAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.PhoneNumber, &u.IsActive,
		&u.CreatedAt, &lastLoginAt, &u.LastLoginIP)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// Create persists the user. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, first_name, last_name, phone_number, is_active, created_at, last_login_ip)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.Username, u.PasswordHash,
		u.FirstName, u.LastName, u.PhoneNumber, u.IsActive, u.CreatedAt, u.LastLoginIP)
	return err
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $1, last_login_ip = $2 WHERE id = $3`, at, ip, id)
	return err
}
