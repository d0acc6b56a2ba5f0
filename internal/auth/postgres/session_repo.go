// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/keyward/internal/auth"
)

const sessionColumns = `id, user_id, token, created_at, expires_at, is_revoked`

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session and assigns its ID.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	err := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO sessions (user_id, token, created_at, expires_at, is_revoked)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		session.UserID,
		session.Token,
		session.CreatedAt,
		session.ExpiresAt,
		session.Revoked,
	).Scan(&session.ID)
	switch {
	case isUniqueViolation(err):
		return oops.Code("SESSION_TOKEN_EXISTS").
			With("user_id", session.UserID).
			Wrap(auth.ErrAlreadyExists)
	case isForeignKeyViolation(err):
		return oops.Code("SESSION_OWNER_MISSING").
			With("user_id", session.UserID).
			Wrap(auth.ErrNotFound)
	case err != nil:
		return oops.Code("SESSION_INSERT_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// GetByToken retrieves a session by exact token match.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*auth.Session, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_ROW_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	return session, nil
}

// List returns sessions joined with their owner's username, ordered by ID.
func (r *SessionRepository) List(ctx context.Context, filter auth.SessionFilter) ([]*auth.SessionInfo, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT s.id, s.user_id, s.token, s.created_at, s.expires_at, s.is_revoked, u.username
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE $1::text = '' OR u.username = $1
		ORDER BY s.id
	`, filter.Username)
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("operation", "list sessions").
			With("username", filter.Username).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.SessionInfo
	for rows.Next() {
		var info auth.SessionInfo
		var expiresAt *time.Time
		if err := rows.Scan(
			&info.ID,
			&info.UserID,
			&info.Token,
			&info.CreatedAt,
			&expiresAt,
			&info.Revoked,
			&info.Username,
		); err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
		info.CreatedAt = info.CreatedAt.UTC()
		info.ExpiresAt = utcPtr(expiresAt)
		sessions = append(sessions, &info)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}
	return sessions, nil
}

// Revoke marks a single session revoked.
func (r *SessionRepository) Revoke(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE sessions SET is_revoked = TRUE WHERE id = $1`, id)
	if err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke session").
			With("session_id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_ROW_NOT_FOUND").With("session_id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// RevokeByUser revokes every non-revoked session of a user.
func (r *SessionRepository) RevokeByUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE sessions SET is_revoked = TRUE WHERE user_id = $1 AND NOT is_revoked`, userID)
	if err != nil {
		return 0, oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke sessions by user").
			With("user_id", userID).
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// scanSession scans a session row. pgx.ErrNoRows is propagated for callers to map.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var session auth.Session
	var expiresAt *time.Time
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.CreatedAt,
		&expiresAt,
		&session.Revoked,
	); err != nil {
		return nil, err
	}
	session.CreatedAt = session.CreatedAt.UTC()
	session.ExpiresAt = utcPtr(expiresAt)
	return &session, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
