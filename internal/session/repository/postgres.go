package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hybrid-session-hub/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, account_id, device_id, access_token, refresh_token, expires_at, is_active, started_at, ended_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.AccountID, s.DeviceID, s.AccessToken, s.RefreshToken,
		timeToNull(s.ExpiresAt), s.Active, s.StartedAt, timeToNull(s.EndedAt))
	return err
}

// ListByAccount returns all sessions for the account, most recent start first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Session, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE account_id = $1 ORDER BY started_at DESC`, accountID)
}

// ListByDevice returns all sessions on the device, most recent start first.
func (r *PostgresRepository) ListByDevice(ctx context.Context, deviceID string) ([]*domain.Session, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE device_id = $1 ORDER BY started_at DESC`, deviceID)
}

// CloseAllForPair ends every active session for (accountID, deviceID) and returns the number closed.
func (r *PostgresRepository) CloseAllForPair(ctx context.Context, accountID, deviceID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE, ended_at = $3 WHERE account_id = $1 AND device_id = $2 AND is_active`,
		accountID, deviceID, at)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close ends the session with the given id.
func (r *PostgresRepository) Close(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE, ended_at = $2 WHERE id = $1`, id, at)
	return err
}

// GetActiveByAccount returns the account's most recently started active session, or nil.
func (r *PostgresRepository) GetActiveByAccount(ctx context.Context, accountID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE account_id = $1 AND is_active ORDER BY started_at DESC LIMIT 1`,
		accountID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// UpdateCredentials attaches a credential pair and expiry to the session.
func (r *PostgresRepository) UpdateCredentials(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET access_token = $2, refresh_token = $3, expires_at = $4 WHERE id = $1`,
		id, accessToken, refreshToken, expiresAt)
	return err
}

func (r *PostgresRepository) list(ctx context.Context, query, arg string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(s rowScanner) (*domain.Session, error) {
	var (
		sess      domain.Session
		expiresAt sql.NullTime
		endedAt   sql.NullTime
	)
	err := s.Scan(&sess.ID, &sess.AccountID, &sess.DeviceID, &sess.AccessToken, &sess.RefreshToken,
		&expiresAt, &sess.Active, &sess.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt = nullToTime(expiresAt)
	sess.EndedAt = nullToTime(endedAt)
	return &sess, nil
}

func timeToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullToTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
