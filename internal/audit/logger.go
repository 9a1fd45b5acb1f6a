package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"campusbook/auth/internal/audit/domain"
	auditrepo "campusbook/auth/internal/audit/repository"
)

// Emitter streams a recorded attempt to an external sink (e.g. Kafka).
type Emitter interface {
	Emit(ctx context.Context, a *domain.LoginAttempt) error
}

// Recorder writes one login attempt record per authentication outcome.
// Recording is best-effort: failures are logged and do not affect the caller,
// so a broken audit path never blocks a login.
type Recorder interface {
	RecordLoginAttempt(ctx context.Context, email, ip, userAgent string, success bool, failureReason string)
}

// Logger implements Recorder using the login attempt repository and an
// optional external emitter.
type Logger struct {
	repo    auditrepo.Repository
	emitter Emitter
}

// NewLogger returns a Recorder that persists to repo and forwards to emitter.
// emitter may be nil.
func NewLogger(repo auditrepo.Repository, emitter Emitter) *Logger {
	return &Logger{repo: repo, emitter: emitter}
}

// RecordLoginAttempt writes one attempt record. Best-effort: errors are logged and not returned.
func (l *Logger) RecordLoginAttempt(ctx context.Context, email, ip, userAgent string, success bool, failureReason string) {
	if l == nil || l.repo == nil {
		return
	}
	attempt := &domain.LoginAttempt{
		ID:            uuid.New().String(),
		Email:         email,
		IPAddress:     ip,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: failureReason,
		AttemptedAt:   time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, attempt); err != nil {
		log.Printf("audit: failed to record login attempt for %s: %v", email, err)
	}
	if l.emitter != nil {
		if err := l.emitter.Emit(ctx, attempt); err != nil {
			log.Printf("audit: failed to emit login attempt for %s: %v", email, err)
		}
	}
}
