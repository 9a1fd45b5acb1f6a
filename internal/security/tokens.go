// Package security provides the JWT codec, signing key resolution, and
// password hashing used by the authentication service.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds carried in the "type" claim. A token of one kind is never
// accepted where the other is expected.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenMalformed is returned for structurally invalid tokens and
	// signature mismatches.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned when the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrEncoding is returned when a token cannot be signed.
	ErrEncoding = errors.New("token encoding failed")
)

// Claims is the payload of both access and refresh tokens. Email is set on
// access tokens only. Timestamps have whole-second resolution and are
// validated with zero leeway.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec encodes and decodes signed token payloads. It is pure and
// stateless: all business rules (session cross-checks, type expectations)
// live in the auth service.
type TokenCodec struct {
	keys *KeyPair
}

// NewTokenCodec returns a codec signing with keys.Private and verifying
// with keys.Public using RS256.
func NewTokenCodec(keys *KeyPair) *TokenCodec {
	return &TokenCodec{keys: keys}
}

// Encode serializes and signs claims for the given user. The jti is a fresh
// UUID, unique per issuance. Returns the compact token, its jti, and the
// expiry actually encoded.
func (c *TokenCodec) Encode(userID, email, tokenType string, now time.Time, lifetime time.Duration) (token, jti string, expiresAt time.Time, err error) {
	jti = uuid.New().String()
	now = now.UTC().Truncate(time.Second)
	expiresAt = now.Add(lifetime)

	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if tokenType == TokenTypeAccess {
		claims.Email = email
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.keys.Private)
	if err != nil {
		return "", "", time.Time{}, ErrEncoding
	}
	return token, jti, expiresAt, nil
}

// Decode verifies the signature and temporal claims of tokenString and
// returns its payload. Returns ErrTokenExpired for expired tokens and
// ErrTokenMalformed for every other structural or signature failure.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrTokenMalformed
		}
		return c.keys.Public, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
