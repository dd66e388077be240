package repository

import (
	"context"

	"hybrid-session-hub/internal/account/domain"
)

// Repository defines persistence for accounts.
type Repository interface {
	// GetByID returns the account for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByUsername returns the account for username, or nil if not found.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	// Create persists a new account. The account must have ID set.
	Create(ctx context.Context, a *domain.Account) error
}
