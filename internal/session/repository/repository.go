package repository

import (
	"context"
	"errors"
	"time"

	"campusbook/auth/internal/session/domain"
)

// ErrSessionNotFound is returned when no active session matches the lookup key.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when the matched session's expiry has passed.
// The store deactivates the row before returning this.
var ErrSessionExpired = errors.New("session expired")

// Store defines persistence for sessions. The session row is the single
// source of truth for whether an issued credential pair is still valid.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByAccessTokenID returns the active session whose current access
	// token carries the given jti, or ErrSessionNotFound.
	GetByAccessTokenID(ctx context.Context, jti string) (*domain.Session, error)
	// RotateAccessToken atomically replaces the access token jti of the
	// active session matching refreshHash, checking expiry under the same
	// lock. An expired session is deactivated and ErrSessionExpired
	// returned; a missing or inactive one yields ErrSessionNotFound.
	RotateAccessToken(ctx context.Context, refreshHash, newJTI string, now time.Time) (*domain.Session, error)
	// Revoke deactivates the active session matching refreshHash and
	// reports whether a row was actually revoked.
	Revoke(ctx context.Context, refreshHash string) (bool, error)
	// RevokeAllByUser deactivates every active session for the user and
	// returns how many were revoked.
	RevokeAllByUser(ctx context.Context, userID string) (int64, error)
}
