package domain

import "time"

// Failure reasons recorded on unsuccessful login attempts. Audit-only:
// nothing in the authentication path reads these back.
const (
	FailureUserNotFound    = "user_not_found"
	FailureInvalidPassword = "invalid_password"
	FailureAccountDisabled = "account_disabled"
)

// LoginAttempt is an append-only audit record of one login call. Attempts
// are written best-effort and never influence the authentication decision.
type LoginAttempt struct {
	ID            string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	AttemptedAt   time.Time
}
