package repository

import (
	"context"
	"database/sql"
	"time"

	"campusbook/auth/internal/dbx"
	"campusbook/auth/internal/session/domain"
)

// SQLiteStore is the SQLite variant of the session store. SQLite has no
// row locks; the transaction itself serializes the rotate, which is enough
// with a single-connection pool.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore returns a session store backed by the given SQLite handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (r *SQLiteStore) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.AccessTokenJTI,
		s.CreatedAt, s.ExpiresAt, s.IPAddress, s.UserAgent, s.IsActive)
	return err
}

func (r *SQLiteStore) GetByAccessTokenID(ctx context.Context, jti string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions
		 WHERE access_token_jti = ? AND is_active = 1`, jti)
	return scanSession(row)
}

func (r *SQLiteStore) RotateAccessToken(ctx context.Context, refreshHash, newJTI string, now time.Time) (*domain.Session, error) {
	var out *domain.Session
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM user_sessions
			 WHERE refresh_token_hash = ? AND is_active = 1`, refreshHash)
		s, err := scanSession(row)
		if err != nil {
			return err
		}
		if s.Expired(now) {
			if _, err := tx.ExecContext(ctx,
				`UPDATE user_sessions SET is_active = 0 WHERE id = ?`, s.ID); err != nil {
				return err
			}
			return ErrSessionExpired
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_sessions SET access_token_jti = ? WHERE id = ?`, newJTI, s.ID); err != nil {
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

func (r *SQLiteStore) Revoke(ctx context.Context, refreshHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = 0
		 WHERE refresh_token_hash = ? AND is_active = 1`, refreshHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteStore) RevokeAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = 0
		 WHERE user_id = ? AND is_active = 1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
