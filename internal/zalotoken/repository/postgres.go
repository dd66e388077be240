package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"hybrid-session-hub/internal/zalotoken/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a Zalo token repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByAccount returns the account's token record, or nil if none.
func (r *PostgresRepository) GetByAccount(ctx context.Context, accountID string) (*domain.Token, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, access_token, refresh_token, expires_at, profile, is_active, created_at, updated_at
		 FROM zalo_tokens WHERE account_id = $1`, accountID)
	var (
		t       domain.Token
		profile []byte
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &profile, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &t.Profile); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// Create persists the token record.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Token) error {
	profile, err := marshalProfile(t.Profile)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO zalo_tokens (id, account_id, access_token, refresh_token, expires_at, profile, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.AccountID, t.AccessToken, t.RefreshToken, t.ExpiresAt, profile, t.Active, t.CreatedAt, t.UpdatedAt)
	return err
}

// Update overwrites the token's mutable fields.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Token) error {
	profile, err := marshalProfile(t.Profile)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE zalo_tokens SET access_token = $2, refresh_token = $3, expires_at = $4, profile = $5, is_active = $6, updated_at = $7
		 WHERE account_id = $1`,
		t.AccountID, t.AccessToken, t.RefreshToken, t.ExpiresAt, profile, t.Active, t.UpdatedAt)
	return err
}

// Delete removes the account's token record. No-op if absent.
func (r *PostgresRepository) Delete(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM zalo_tokens WHERE account_id = $1`, accountID)
	return err
}

func marshalProfile(p *domain.Profile) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}
