package repository

import (
	"context"
	"time"

	"hybrid-session-hub/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Create persists a new session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// ListByAccount returns all sessions for the account, most recent start first.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Session, error)
	// ListByDevice returns all sessions on the device, most recent start first.
	ListByDevice(ctx context.Context, deviceID string) ([]*domain.Session, error)
	// CloseAllForPair ends every active session for (accountID, deviceID) at the
	// given instant and returns the number closed.
	CloseAllForPair(ctx context.Context, accountID, deviceID string, at time.Time) (int, error)
	// Close ends the session with the given id at the given instant.
	Close(ctx context.Context, id string, at time.Time) error
	// GetActiveByAccount returns the account's most recently started active
	// session on any device, or nil if none.
	GetActiveByAccount(ctx context.Context, accountID string) (*domain.Session, error)
	// UpdateCredentials attaches a credential pair and expiry to the session.
	UpdateCredentials(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
}
