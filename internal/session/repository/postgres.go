package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"account-platform/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, session_key, user_id, expires_at, ip_address, is_admin, created_at`

// Create inserts the session and returns the stored row. Returns (nil, nil)
// if the insert produced no row.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, session_key, user_id, expires_at, ip_address, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+sessionColumns,
		s.ID, s.SessionKey, s.UserID, s.ExpiresAt,
		sql.NullString{String: s.IPAddress, Valid: s.IPAddress != ""},
		s.IsAdmin, s.CreatedAt,
	)
	return scanSession(row)
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByUserID returns the canonical session for the user: the oldest row by
// created_at when more than one exists. Returns nil if the user has none.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1`,
		userID)
	return scanSession(row)
}

// UpdateExpiresAt sets the session's expiry. The only field that is ever
// updated in place.
func (r *PostgresRepository) UpdateExpiresAt(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = $2 WHERE id = $1`, id, at)
	return err
}

// Delete removes the session. Deleting an absent session is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteAll removes every session. Used for global credential revocation.
func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions`)
	return err
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var ip sql.NullString
	err := row.Scan(&s.ID, &s.SessionKey, &s.UserID, &s.ExpiresAt, &ip, &s.IsAdmin, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if ip.Valid {
		s.IPAddress = ip.String
	}
	return &s, nil
}
