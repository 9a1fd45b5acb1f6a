package middleware

import "context"

type identityKey struct{}

// Identity is the authenticated principal attached to a request context by
// the authentication gate.
type Identity struct {
	UserID    string
	Email     string
	SessionID string
}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// GetIdentity returns the identity set by the gate, if any.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// GetUserID returns the authenticated user id, if any.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	return id.UserID, ok
}
