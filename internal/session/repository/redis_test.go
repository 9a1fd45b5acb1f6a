package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusbook/auth/internal/session/domain"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func testSession(userID string) *domain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		RefreshTokenHash: uuid.New().String(),
		AccessTokenJTI:   uuid.New().String(),
		CreatedAt:        now,
		ExpiresAt:        now.Add(7 * 24 * time.Hour),
		IPAddress:        "10.0.0.1",
		UserAgent:        "test-agent",
		IsActive:         true,
	}
}

func TestRedisStoreCreateAndGetByAccessTokenID(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	s := testSession("user-1")
	require.NoError(t, store.Create(ctx, s))

	got, err := store.GetByAccessTokenID(ctx, s.AccessTokenJTI)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.UserID, got.UserID)
	assert.Equal(t, s.RefreshTokenHash, got.RefreshTokenHash)
	assert.True(t, got.IsActive)

	_, err = store.GetByAccessTokenID(ctx, "no-such-jti")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreRotateAccessToken(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	s := testSession("user-1")
	require.NoError(t, store.Create(ctx, s))

	oldJTI := s.AccessTokenJTI
	newJTI := uuid.New().String()
	rotated, err := store.RotateAccessToken(ctx, s.RefreshTokenHash, newJTI, time.Now())
	require.NoError(t, err)
	assert.Equal(t, newJTI, rotated.AccessTokenJTI)
	assert.Equal(t, s.UserID, rotated.UserID)

	// The old jti no longer resolves; the new one does.
	_, err = store.GetByAccessTokenID(ctx, oldJTI)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	got, err := store.GetByAccessTokenID(ctx, newJTI)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestRedisStoreRotateUnknownRefreshHash(t *testing.T) {
	store, _ := newRedisStore(t)

	_, err := store.RotateAccessToken(context.Background(), "unknown-hash", uuid.New().String(), time.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreRotateExpiredSession(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	s := testSession("user-1")
	require.NoError(t, store.Create(ctx, s))

	after := s.ExpiresAt.Add(time.Hour)
	_, err := store.RotateAccessToken(ctx, s.RefreshTokenHash, uuid.New().String(), after)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// Expiry during rotate removes the session entirely.
	_, err = store.GetByAccessTokenID(ctx, s.AccessTokenJTI)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreRevoke(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	s := testSession("user-1")
	require.NoError(t, store.Create(ctx, s))

	ok, err := store.Revoke(ctx, s.RefreshTokenHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.GetByAccessTokenID(ctx, s.AccessTokenJTI)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Revoking again reports nothing happened.
	ok, err = store.Revoke(ctx, s.RefreshTokenHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreRevokeAllByUser(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	s1 := testSession("user-1")
	s2 := testSession("user-1")
	other := testSession("user-2")
	require.NoError(t, store.Create(ctx, s1))
	require.NoError(t, store.Create(ctx, s2))
	require.NoError(t, store.Create(ctx, other))

	n, err := store.RevokeAllByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = store.GetByAccessTokenID(ctx, s1.AccessTokenJTI)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.GetByAccessTokenID(ctx, s2.AccessTokenJTI)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The other user's session is untouched.
	got, err := store.GetByAccessTokenID(ctx, other.AccessTokenJTI)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)

	n, err = store.RevokeAllByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
