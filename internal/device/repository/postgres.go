package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"hybrid-session-hub/internal/device/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a device repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const deviceColumns = `id, fingerprint, brand, model, platform, os_version, owner_account_id, metadata, created_at, updated_at`

// GetByID returns the device for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	return scanDevice(row)
}

// GetByFingerprint returns the device with the given fingerprint, or nil if not found.
func (r *PostgresRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE fingerprint = $1`, fingerprint)
	return scanDevice(row)
}

// Create persists the device. The device must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.Device) error {
	meta, err := marshalMetadata(d.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO devices (`+deviceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.Fingerprint, d.Brand, d.Model, d.Platform, d.OSVersion,
		ownerToNull(d.OwnerAccountID), meta, d.CreatedAt, d.UpdatedAt)
	return err
}

// UpdateOwner overwrites the owner pointer and metadata for the device.
func (r *PostgresRepository) UpdateOwner(ctx context.Context, id string, ownerAccountID *string, metadata map[string]string) error {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE devices SET owner_account_id = $2, metadata = $3, updated_at = $4 WHERE id = $1`,
		id, ownerToNull(ownerAccountID), meta, time.Now().UTC())
	return err
}

// ListByOwner returns devices whose owner pointer is accountID.
func (r *PostgresRepository) ListByOwner(ctx context.Context, accountID string) ([]*domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE owner_account_id = $1 ORDER BY updated_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Device
	for rows.Next() {
		d, err := scanDeviceRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	return json.Marshal(m)
}

func ownerToNull(owner *string) sql.NullString {
	if owner == nil || *owner == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *owner, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row *sql.Row) (*domain.Device, error) {
	d, err := scanDeviceFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func scanDeviceRows(rows *sql.Rows) (*domain.Device, error) {
	return scanDeviceFrom(rows)
}

func scanDeviceFrom(s rowScanner) (*domain.Device, error) {
	var (
		d     domain.Device
		owner sql.NullString
		meta  []byte
	)
	err := s.Scan(&d.ID, &d.Fingerprint, &d.Brand, &d.Model, &d.Platform, &d.OSVersion, &owner, &meta, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if owner.Valid {
		v := owner.String
		d.OwnerAccountID = &v
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &d.Metadata); err != nil {
			return nil, err
		}
	}
	return &d, nil
}
