// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	DefaultTokenLength     = 32                  // 32 bytes = 64 hex chars
	MinTokenLength         = 16                  // below this, guessing becomes plausible
	MaxTokenLength         = 64                  // hex form must fit the token column
	DefaultSessionDuration = 30 * 24 * time.Hour // 30 day expiry
)

// SessionStatus describes a session's state at a point in time.
type SessionStatus string

// Session states.
const (
	SessionActive  SessionStatus = "active"
	SessionExpired SessionStatus = "expired"
	SessionRevoked SessionStatus = "revoked"
)

// Session is a revocable, optionally time-bounded grant of identity owned by one user.
type Session struct {
	ID        int64
	UserID    int64
	Token     string // storage key: the raw token or its digest, see TokenStorage
	CreatedAt time.Time
	ExpiresAt *time.Time // nil if the session never expires
	Revoked   bool
}

// SessionInfo is a Session together with its owner's username, for listings.
type SessionInfo struct {
	Session
	Username string
}

// NewSession creates a validated Session.
// A zero ttl produces a session that never expires.
func NewSession(userID int64, token string, now time.Time, ttl time.Duration) (*Session, error) {
	if userID <= 0 {
		return nil, oops.Code("SESSION_INVALID_USER").With("user_id", userID).Errorf("user ID must be positive")
	}
	if token == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("token cannot be empty")
	}
	if ttl < 0 {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").With("ttl", ttl.String()).Errorf("session duration cannot be negative")
	}

	session := &Session{
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		session.ExpiresAt = &expiresAt
	}
	return session, nil
}

// Valid returns true if the session is neither revoked nor expired.
func (s *Session) Valid() bool {
	return s.ValidAt(time.Now())
}

// ValidAt reports whether the session would be valid at the given time.
// A session whose expiry equals t is still valid.
func (s *Session) ValidAt(t time.Time) bool {
	return s.StatusAt(t) == SessionActive
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return s.ExpiresAt != nil && t.After(*s.ExpiresAt)
}

// StatusAt returns the session state at the given time. Revocation takes
// precedence over expiry.
func (s *Session) StatusAt(t time.Time) SessionStatus {
	switch {
	case s.Revoked:
		return SessionRevoked
	case s.IsExpiredAt(t):
		return SessionExpired
	default:
		return SessionActive
	}
}

// GenerateToken creates a hex-encoded token from n cryptographically random bytes.
func GenerateToken(n int) (string, error) {
	if n < MinTokenLength {
		return "", oops.Code("SESSION_TOKEN_TOO_SHORT").
			With("requested_bytes", n).
			Errorf("token length must be at least %d bytes", MinTokenLength)
	}

	tokenBytes := make([]byte, n)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", n).
			Wrap(err)
	}

	return hex.EncodeToString(tokenBytes), nil
}

// HashToken computes the hex SHA-256 digest of a session token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenStorage selects what is persisted as a session's lookup key.
type TokenStorage string

// Token storage modes.
const (
	// TokenStoragePlain stores the raw token; it is both secret and lookup key.
	TokenStoragePlain TokenStorage = "plain"
	// TokenStorageSHA256 stores only the SHA-256 digest of the token.
	TokenStorageSHA256 TokenStorage = "sha256"
)

// ParseTokenStorage converts a configuration value to a TokenStorage.
// An empty value selects TokenStoragePlain.
func ParseTokenStorage(s string) (TokenStorage, error) {
	switch TokenStorage(s) {
	case "", TokenStoragePlain:
		return TokenStoragePlain, nil
	case TokenStorageSHA256:
		return TokenStorageSHA256, nil
	default:
		return "", oops.Code("SESSION_INVALID_TOKEN_STORAGE").
			With("value", s).
			Errorf("token storage must be %q or %q", TokenStoragePlain, TokenStorageSHA256)
	}
}

// StorageKey returns the value persisted and looked up for token.
func (ts TokenStorage) StorageKey(token string) string {
	if ts == TokenStorageSHA256 {
		return HashToken(token)
	}
	return token
}

// SessionFilter narrows a session listing.
type SessionFilter struct {
	// Username restricts the listing to one user's sessions when non-empty.
	Username string
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session and assigns its ID.
	// Returns an error wrapping ErrAlreadyExists if the token is taken, or
	// ErrNotFound if the owning user no longer exists.
	Create(ctx context.Context, session *Session) error

	// GetByToken retrieves a session by exact token match.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// List returns sessions with their owner's username, ordered by ID.
	List(ctx context.Context, filter SessionFilter) ([]*SessionInfo, error)

	// Revoke marks a single session revoked.
	Revoke(ctx context.Context, id int64) error

	// RevokeByUser marks every non-revoked session of a user revoked and
	// returns how many changed.
	RevokeByUser(ctx context.Context, userID int64) (int64, error)
}
