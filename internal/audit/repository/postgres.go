package repository

import (
	"context"
	"database/sql"

	"hybrid-session-hub/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the entry.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, account_id, device_id, action, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.AccountID, a.DeviceID, a.Action, a.Metadata, a.CreatedAt)
	return err
}

// ListByAccount returns the account's entries, newest first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, device_id, action, metadata, created_at
		 FROM audit_logs WHERE account_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.AccountID, &a.DeviceID, &a.Action, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
