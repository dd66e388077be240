package repository

import (
	"context"

	"hybrid-session-hub/internal/audit/domain"
)

// Repository defines persistence for audit log entries.
type Repository interface {
	// Create persists the entry. The entry must have ID set.
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByAccount returns the account's entries, newest first.
	ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error)
}
