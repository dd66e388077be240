package repository

import (
	"context"
	"database/sql"
	"errors"

	"hybrid-session-hub/internal/account/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, username, password_hash, display_name, avatar, email, phone, created_at, updated_at`

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByUsername returns the account for username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// Create persists the account. The account must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Username, a.PasswordHash, a.DisplayName, a.Avatar, a.Email, a.Phone, a.CreatedAt, a.UpdatedAt)
	return err
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.DisplayName, &a.Avatar, &a.Email, &a.Phone, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
