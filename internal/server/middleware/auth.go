// Package middleware holds the HTTP middleware: the authentication gate
// that resolves Bearer tokens into request identities, and helpers for
// reading them back out of the context.
package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	authservice "campusbook/auth/internal/auth/service"
	"campusbook/auth/internal/security"
	"campusbook/auth/internal/server/response"
)

// Verifier resolves an access token into an identity. Implemented by the
// auth service.
type Verifier interface {
	VerifyAccess(ctx context.Context, token, ip string) (*authservice.Identity, error)
}

// Gate authenticates requests that carry an Authorization header. A request
// without one passes through unauthenticated; the route decides whether that
// is acceptable. A header that is present but unusable is a hard 401, never
// a silent downgrade to anonymous.
func Gate(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := bearerToken(header)
			if !ok {
				response.Fail(w, http.StatusUnauthorized, "invalid_authorization_header",
					"Authorization header must be of the form: Bearer <token>")
				return
			}
			id, err := verifier.VerifyAccess(r.Context(), token, ClientIP(r))
			if err != nil {
				code, message := "token_invalid", "Token is invalid"
				switch {
				case errors.Is(err, security.ErrTokenExpired):
					code, message = "token_expired", "Token has expired"
				case errors.Is(err, security.ErrTokenMalformed):
					code, message = "token_malformed", "Token is malformed"
				case errors.Is(err, authservice.ErrSessionInvalid):
					code, message = "session_invalid", "Session is invalid or has been revoked"
				}
				response.Fail(w, http.StatusUnauthorized, code, message)
				return
			}
			ctx := WithIdentity(r.Context(), Identity{
				UserID:    id.UserID,
				Email:     id.Email,
				SessionID: id.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests the gate left unauthenticated.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetIdentity(r.Context()); !ok {
			response.Fail(w, http.StatusUnauthorized, "authentication_required",
				"Authentication credentials were not provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from an Authorization header value. The
// scheme comparison is case-insensitive; the header must carry exactly one
// token value after the scheme.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// ClientIP returns the originating client address, preferring the first
// X-Forwarded-For hop when a proxy added one.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
