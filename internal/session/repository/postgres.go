package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"campusbook/auth/internal/dbx"
	"campusbook/auth/internal/session/domain"
)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a session store backed by the given Postgres handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, user_id, refresh_token_hash, access_token_jti, created_at, expires_at, ip_address, user_agent, is_active`

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.AccessTokenJTI,
		&s.CreatedAt, &s.ExpiresAt, &s.IPAddress, &s.UserAgent, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresStore) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.AccessTokenJTI,
		s.CreatedAt, s.ExpiresAt, s.IPAddress, s.UserAgent, s.IsActive)
	return err
}

// GetByAccessTokenID returns the active session whose access token jti matches,
// or ErrSessionNotFound.
func (r *PostgresStore) GetByAccessTokenID(ctx context.Context, jti string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions
		 WHERE access_token_jti = $1 AND is_active = TRUE`, jti)
	return scanSession(row)
}

// RotateAccessToken replaces the access token jti inside a transaction, with
// the session row locked so two concurrent refreshes cannot both win.
func (r *PostgresStore) RotateAccessToken(ctx context.Context, refreshHash, newJTI string, now time.Time) (*domain.Session, error) {
	var out *domain.Session
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM user_sessions
			 WHERE refresh_token_hash = $1 AND is_active = TRUE
			 FOR UPDATE`, refreshHash)
		s, err := scanSession(row)
		if err != nil {
			return err
		}
		if s.Expired(now) {
			if _, err := tx.ExecContext(ctx,
				`UPDATE user_sessions SET is_active = FALSE WHERE id = $1`, s.ID); err != nil {
				return err
			}
			return ErrSessionExpired
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_sessions SET access_token_jti = $1 WHERE id = $2`, newJTI, s.ID); err != nil {
			return err
		}
		s.AccessTokenJTI = newJTI
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Revoke deactivates the active session matching refreshHash.
func (r *PostgresStore) Revoke(ctx context.Context, refreshHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = FALSE
		 WHERE refresh_token_hash = $1 AND is_active = TRUE`, refreshHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeAllByUser deactivates every active session for the user.
func (r *PostgresStore) RevokeAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = FALSE
		 WHERE user_id = $1 AND is_active = TRUE`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
