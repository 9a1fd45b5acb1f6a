// Package service implements the credential lifecycle: issuing access/refresh
// pairs bound to session records, verifying and refreshing them, and revoking
// sessions singly or in bulk. The session row is the single source of truth
// for revocation; a cryptographically valid token whose session is gone is
// rejected.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	auditdomain "campusbook/auth/internal/audit/domain"
	"campusbook/auth/internal/security"
	sessiondomain "campusbook/auth/internal/session/domain"
	sessionrepo "campusbook/auth/internal/session/repository"
	userdomain "campusbook/auth/internal/user/domain"
)

// Sentinel errors for the auth service; the HTTP handler maps them to status codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound and ErrInvalidPassword both unwrap to
	// ErrInvalidCredentials. The login response keeps the distinct
	// wording the clients already depend on.
	ErrUserNotFound    = fmt.Errorf("user not found: %w", ErrInvalidCredentials)
	ErrInvalidPassword = fmt.Errorf("incorrect password: %w", ErrInvalidCredentials)

	ErrAccountDisabled = errors.New("account is disabled")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrSessionInvalid  = errors.New("session is invalid or revoked")
	ErrRefreshExpired  = errors.New("refresh session expired")
)

// TokenPair is one issued credential pair plus the session it is bound to.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        string
}

// Identity is the authenticated principal resolved from an access token.
type Identity struct {
	UserID    string
	Email     string
	SessionID string
}

// RegisterInput carries the fields accepted at registration. Validation of
// formats happens at the HTTP boundary; the service enforces uniqueness.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error
}

// SessionStore is the minimal session store needed by the auth service.
type SessionStore interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByAccessTokenID(ctx context.Context, jti string) (*sessiondomain.Session, error)
	RotateAccessToken(ctx context.Context, refreshHash, newJTI string, now time.Time) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, refreshHash string) (bool, error)
	RevokeAllByUser(ctx context.Context, userID string) (int64, error)
}

// Recorder records login attempt outcomes; implementations are best-effort.
type Recorder interface {
	RecordLoginAttempt(ctx context.Context, email, ip, userAgent string, success bool, failureReason string)
}

// AuthService implements register, login, token verification, refresh, and
// single/bulk revocation.
type AuthService struct {
	users      UserRepo
	sessions   SessionStore
	attempts   Recorder
	hasher     *security.Hasher
	codec      *security.TokenCodec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
// attempts may be nil to disable login attempt recording.
func NewAuthService(
	users UserRepo,
	sessions SessionStore,
	attempts Recorder,
	hasher *security.Hasher,
	codec *security.TokenCodec,
	accessTTL, refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		attempts:   attempts,
		hasher:     hasher,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair mints a fresh access/refresh pair for the user and creates the
// session row that makes both revocable. Existing sessions are untouched:
// one user may hold any number of concurrent sessions.
func (s *AuthService) IssuePair(ctx context.Context, user *userdomain.User, ip, userAgent string) (*TokenPair, error) {
	now := time.Now().UTC()
	accessToken, accessJTI, accessExp, err := s.codec.Encode(user.ID, user.Email, security.TokenTypeAccess, now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, _, refreshExp, err := s.codec.Encode(user.ID, "", security.TokenTypeRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		AccessTokenJTI:   accessJTI,
		CreatedAt:        now,
		ExpiresAt:        refreshExp,
		IPAddress:        ip,
		UserAgent:        userAgent,
		IsActive:         true,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.ID,
	}, nil
}

// VerifyAccess authenticates an access token: the signature and expiry must
// check out, the claims must carry type "access", an active unexpired
// session must still reference the token's jti, and the user must still
// exist and be active. On success the user's last-login info is updated
// best-effort.
func (s *AuthService) VerifyAccess(ctx context.Context, token, ip string) (*Identity, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != security.TokenTypeAccess {
		return nil, security.ErrTokenMalformed
	}
	sess, err := s.sessions.GetByAccessTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sessionrepo.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if sess.Expired(time.Now().UTC()) {
		return nil, ErrSessionInvalid
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrSessionInvalid
	}
	if err := s.users.UpdateLastLogin(ctx, claims.UserID, time.Now().UTC(), ip); err != nil {
		log.Printf("auth: failed to update last login for %s: %v", claims.UserID, err)
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email, SessionID: sess.ID}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is NOT rotated: the same one stays valid until its
// session expires or is revoked. Only the session's access token linkage
// changes, atomically, so the previous access token stops resolving to a
// session the moment the new one exists.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != security.TokenTypeRefresh {
		return nil, security.ErrTokenMalformed
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrSessionInvalid
	}
	now := time.Now().UTC()
	accessToken, accessJTI, accessExp, err := s.codec.Encode(user.ID, user.Email, security.TokenTypeAccess, now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshHash := security.HashRefreshToken(refreshToken)
	sess, err := s.sessions.RotateAccessToken(ctx, refreshHash, accessJTI, now)
	if err != nil {
		switch {
		case errors.Is(err, sessionrepo.ErrSessionExpired):
			return nil, ErrRefreshExpired
		case errors.Is(err, sessionrepo.ErrSessionNotFound):
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: sess.ExpiresAt,
		SessionID:        sess.ID,
	}, nil
}

// Revoke deactivates the session bound to the refresh token and reports
// whether anything was revoked. The token is matched by value, not decoded:
// an expired refresh token still revokes its session, and revoking an
// already-revoked session is not an error.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	return s.sessions.Revoke(ctx, security.HashRefreshToken(refreshToken))
}

// RevokeAll deactivates every active session of the user and returns how
// many were revoked.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return s.sessions.RevokeAllByUser(ctx, userID)
}

// Login authenticates email/password, records the attempt, and issues a
// credential pair. The not-found and wrong-password failures stay
// distinguishable in the returned error.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*userdomain.User, *TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		s.recordAttempt(ctx, email, ip, userAgent, false, auditdomain.FailureUserNotFound)
		return nil, nil, ErrUserNotFound
	}
	if !user.IsActive {
		s.recordAttempt(ctx, email, ip, userAgent, false, auditdomain.FailureAccountDisabled)
		return nil, nil, ErrAccountDisabled
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.recordAttempt(ctx, email, ip, userAgent, false, auditdomain.FailureInvalidPassword)
		return nil, nil, ErrInvalidPassword
	}
	pair, err := s.IssuePair(ctx, user, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}
	s.recordAttempt(ctx, email, ip, userAgent, true, "")
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now, ip); err != nil {
		log.Printf("auth: failed to update last login for %s: %v", user.ID, err)
	} else {
		at := now
		user.LastLoginAt = &at
		user.LastLoginIP = ip
	}
	return user, pair, nil
}

// Register creates an account and logs it straight in, returning the new
// user with its first credential pair.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, ip, userAgent string) (*userdomain.User, *TokenPair, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	username := strings.TrimSpace(in.Username)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrEmailTaken
	}
	existing, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrUsernameTaken
	}

	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, nil, err
	}
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}
	pair, err := s.IssuePair(ctx, user, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, email, ip, userAgent string, success bool, reason string) {
	if s.attempts == nil {
		return
	}
	s.attempts.RecordLoginAttempt(ctx, email, ip, userAgent, success, reason)
}
