// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/keyward/internal/auth"
)

const sessionColumns = `id, user_id, token, created_at, expires_at, is_revoked`

// SessionRepository implements auth.SessionRepository using SQLite.
type SessionRepository struct {
	db *sql.DB
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session and assigns its ID.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO sessions (user_id, token, created_at, expires_at, is_revoked)
		VALUES (?, ?, ?, ?, ?)
	`,
		session.UserID,
		session.Token,
		toMillis(session.CreatedAt),
		toNullMillis(session.ExpiresAt),
		session.Revoked,
	)
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

	id, err := res.LastInsertId()
	if err != nil {
		return oops.Code("SESSION_INSERT_FAILED").
			With("operation", "read session id").
			Wrap(err)
	}
	session.ID = id
	return nil
}

// GetByToken retrieves a session by exact token match.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*auth.Session, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, token)

	var session auth.Session
	err := scanSession(row, &session)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("SESSION_ROW_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	return &session, nil
}

// List returns sessions joined with their owner's username, ordered by ID.
func (r *SessionRepository) List(ctx context.Context, filter auth.SessionFilter) ([]*auth.SessionInfo, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT s.id, s.user_id, s.token, s.created_at, s.expires_at, s.is_revoked, u.username
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE ? = '' OR u.username = ?
		ORDER BY s.id
	`, filter.Username, filter.Username)
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
		if err := scanSession(rows, &info.Session, &info.Username); err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
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
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE sessions SET is_revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke session").
			With("session_id", id).
			Wrap(err)
	}
	return requireAffected(res, "session_id", id)
}

// RevokeByUser revokes every non-revoked session of a user.
func (r *SessionRepository) RevokeByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE sessions SET is_revoked = 1 WHERE user_id = ? AND is_revoked = 0`, userID)
	if err != nil {
		return 0, oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke sessions by user").
			With("user_id", userID).
			Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, oops.Code("ROWS_AFFECTED_FAILED").With("user_id", userID).Wrap(err)
	}
	return n, nil
}

// scanSession scans the session columns into s, followed by any extra
// destinations. sql.ErrNoRows is propagated for callers to map.
func scanSession(row rowScanner, s *auth.Session, extra ...any) error {
	var createdAt int64
	var expiresAt sql.NullInt64
	dest := append([]any{
		&s.ID,
		&s.UserID,
		&s.Token,
		&createdAt,
		&expiresAt,
		&s.Revoked,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	s.CreatedAt = fromMillis(createdAt)
	s.ExpiresAt = fromNullMillis(expiresAt)
	return nil
}
