// Package audit persists coordinator events for later inspection.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"hybrid-session-hub/internal/audit/domain"
	auditrepo "hybrid-session-hub/internal/audit/repository"
)

// Logger writes audit entries through a repository. LogEvent is best-effort:
// failures are logged and do not affect the caller.
type Logger struct {
	repo auditrepo.Repository
	nowF func() time.Time
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo, nowF: time.Now}
}

// LogEvent writes one audit entry. Errors are logged, never returned.
func (l *Logger) LogEvent(ctx context.Context, accountID, deviceID, action, metadata string) {
	if l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.NewString(),
		AccountID: accountID,
		DeviceID:  deviceID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: l.nowF().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s for account %s: %v", action, accountID, err)
	}
}

// ListByAccount returns the account's audit entries, newest first.
func (l *Logger) ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.repo.ListByAccount(ctx, accountID, limit, offset)
}
