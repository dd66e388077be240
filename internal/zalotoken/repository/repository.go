package repository

import (
	"context"

	"hybrid-session-hub/internal/zalotoken/domain"
)

// Repository defines persistence for Zalo OAuth tokens; one row per account.
type Repository interface {
	// GetByAccount returns the account's token record, or nil if none.
	GetByAccount(ctx context.Context, accountID string) (*domain.Token, error)
	// Create persists a new token record. The token must have ID set.
	Create(ctx context.Context, t *domain.Token) error
	// Update overwrites the token's mutable fields (tokens, expiry, profile, active).
	Update(ctx context.Context, t *domain.Token) error
	// Delete removes the account's token record. No-op if absent.
	Delete(ctx context.Context, accountID string) error
}
