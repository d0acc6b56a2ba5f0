// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/holomush/keyward/internal/auth"

// Token collision handling. A collision needs a fresh token and a fresh
// transaction, so each attempt reruns the whole unit of work.
const (
	maxTokenRetries = 3
	tokenRetryDelay = 5 * time.Millisecond
)

// dummyPasswordHash is verified against when a user doesn't exist so that the
// response time does not reveal whether the username is registered.
// This is NOT a real credential - it will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// EngineConfig holds the session policy.
type EngineConfig struct {
	// SessionDuration is added to the issue time to compute expiry.
	// Zero issues sessions that never expire.
	SessionDuration time.Duration

	// TokenLength is the number of random bytes in a token.
	TokenLength int

	// TokenStorage selects what is persisted as the lookup key.
	TokenStorage TokenStorage
}

// DefaultEngineConfig returns the reference session policy.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SessionDuration: DefaultSessionDuration,
		TokenLength:     DefaultTokenLength,
		TokenStorage:    TokenStoragePlain,
	}
}

// Validate checks the session policy.
func (c EngineConfig) Validate() error {
	if c.SessionDuration < 0 {
		return oops.Code("ENGINE_INVALID_CONFIG").
			With("session_duration", c.SessionDuration.String()).
			Errorf("session duration cannot be negative")
	}
	if c.TokenLength < MinTokenLength || c.TokenLength > MaxTokenLength {
		return oops.Code("ENGINE_INVALID_CONFIG").
			With("token_length", c.TokenLength).
			Errorf("token length must be between %d and %d bytes", MinTokenLength, MaxTokenLength)
	}
	if _, err := ParseTokenStorage(string(c.TokenStorage)); err != nil {
		return err
	}
	return nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock replaces the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine owns the user and session lifecycle.
type Engine struct {
	tx       Transactor
	users    UserRepository
	sessions SessionRepository
	verifier CredentialVerifier
	cfg      EngineConfig
	now      func() time.Time
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewEngine creates an Engine. All store members and the verifier are required.
func NewEngine(store Store, verifier CredentialVerifier, cfg EngineConfig, opts ...Option) (*Engine, error) {
	if store.Transactor == nil {
		return nil, oops.Code("ENGINE_INVALID_CONFIG").Errorf("transactor is required")
	}
	if store.Users == nil {
		return nil, oops.Code("ENGINE_INVALID_CONFIG").Errorf("users repository is required")
	}
	if store.Sessions == nil {
		return nil, oops.Code("ENGINE_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if verifier == nil {
		return nil, oops.Code("ENGINE_INVALID_CONFIG").Errorf("credential verifier is required")
	}
	if cfg.TokenStorage == "" {
		cfg.TokenStorage = TokenStoragePlain
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		tx:       store.Transactor,
		users:    store.Users,
		sessions: store.Sessions,
		verifier: verifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		return nil, oops.Code("ENGINE_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	if e.now == nil {
		return nil, oops.Code("ENGINE_INVALID_CONFIG").Errorf("clock cannot be nil")
	}
	return e, nil
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// CreateUser hashes the password and stores a new active user.
// Returns ErrDuplicateUser if the username is taken, whether detected by the
// pre-check or by the storage unique constraint.
func (e *Engine) CreateUser(ctx context.Context, username, password string) (*User, error) {
	ctx, span := e.tracer.Start(ctx, "auth.CreateUser")
	defer span.End()

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	// Hash outside the transaction; argon2 is deliberately slow.
	hash, err := e.verifier.Hash(password)
	if err != nil {
		return nil, oops.With("operation", "hash password").Wrap(err)
	}

	var created *User
	err = e.tx.InTransaction(ctx, func(ctx context.Context) error {
		_, lookupErr := e.users.GetByUsername(ctx, username)
		switch {
		case lookupErr == nil:
			return duplicateUserError(username)
		case !errors.Is(lookupErr, ErrNotFound):
			return oops.Code("USER_CREATE_FAILED").
				With("operation", "check existing user").
				With("username", username).
				Wrap(lookupErr)
		}

		user, err := NewUser(username, hash, e.now())
		if err != nil {
			return err
		}
		if err := e.users.Create(ctx, user); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				return duplicateUserError(username)
			}
			return oops.Code("USER_CREATE_FAILED").
				With("operation", "insert user").
				With("username", username).
				Wrap(err)
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	UsersCreated.Inc()
	e.logger.InfoContext(ctx, "user created",
		"user_id", created.ID,
		"username", created.Username)
	return created, nil
}

// GetUser looks a user up by username. The boolean is false if no such user exists.
func (e *Engine) GetUser(ctx context.Context, username string) (*User, bool, error) {
	ctx, span := e.tracer.Start(ctx, "auth.GetUser")
	defer span.End()

	var user *User
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = e.lookupUser(ctx, username)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return user, user != nil, nil
}

// GetUserByID looks a user up by ID. The boolean is false if no such user exists.
func (e *Engine) GetUserByID(ctx context.Context, id int64) (*User, bool, error) {
	ctx, span := e.tracer.Start(ctx, "auth.GetUserByID")
	defer span.End()

	var user *User
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		u, err := e.users.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return oops.Code("USER_LOOKUP_FAILED").
				With("operation", "get user by id").
				With("user_id", id).
				Wrap(err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, user != nil, nil
}

// AuthenticateUser returns the user if the password matches.
// An unknown username, a wrong password and a disabled account are
// indistinguishable: each yields (nil, false, nil).
func (e *Engine) AuthenticateUser(ctx context.Context, username, password string) (*User, bool, error) {
	ctx, span := e.tracer.Start(ctx, "auth.AuthenticateUser")
	defer span.End()

	var user *User
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = e.lookupUser(ctx, username)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	// Always verify so an unknown username costs the same as a known one.
	targetHash := dummyPasswordHash
	if user != nil {
		targetHash = user.PasswordHash
	}
	matched := e.verifier.Verify(password, targetHash)

	switch {
	case user == nil || !matched:
		Authentications.WithLabelValues(ResultInvalidCredentials).Inc()
		e.logger.DebugContext(ctx, "authentication failed", "reason", ResultInvalidCredentials)
		return nil, false, nil
	case !user.Active:
		Authentications.WithLabelValues(ResultInactive).Inc()
		e.logger.DebugContext(ctx, "authentication failed",
			"reason", ResultInactive,
			"user_id", user.ID)
		return nil, false, nil
	}

	Authentications.WithLabelValues(ResultSuccess).Inc()
	span.SetAttributes(attribute.Int64("user_id", user.ID))
	return user, true, nil
}

// CreateSession issues a session for an existing, active user and returns
// the raw token. The raw token is not retrievable afterwards.
func (e *Engine) CreateSession(ctx context.Context, userID int64) (string, error) {
	ctx, span := e.tracer.Start(ctx, "auth.CreateSession", trace.WithAttributes(attribute.Int64("user_id", userID)))
	defer span.End()

	var token string
	attempts := 0
	backoff := retry.WithMaxRetries(maxTokenRetries, retry.NewConstant(tokenRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		issued, err := e.issueSession(ctx, userID)
		if errors.Is(err, ErrAlreadyExists) {
			TokenCollisions.Inc()
			e.logger.WarnContext(ctx, "session token collision, retrying",
				"user_id", userID,
				"attempt", attempts)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		token = issued
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return "", oops.Code("SESSION_TOKEN_COLLISION").
				With("user_id", userID).
				With("attempts", attempts).
				Errorf("could not generate a unique session token")
		}
		return "", err
	}

	SessionsIssued.Inc()
	e.logger.InfoContext(ctx, "session issued", "user_id", userID)
	return token, nil
}

// issueSession runs one attempt of CreateSession in its own transaction.
func (e *Engine) issueSession(ctx context.Context, userID int64) (string, error) {
	token, err := GenerateToken(e.cfg.TokenLength)
	if err != nil {
		return "", err
	}

	err = e.tx.InTransaction(ctx, func(ctx context.Context) error {
		user, err := e.users.GetByID(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return userNotFoundError(userID)
		}
		if err != nil {
			return oops.Code("SESSION_CREATE_FAILED").
				With("operation", "get user by id").
				With("user_id", userID).
				Wrap(err)
		}
		if !user.Active {
			return userInactiveError(userID)
		}

		session, err := NewSession(user.ID, e.cfg.TokenStorage.StorageKey(token), e.now(), e.cfg.SessionDuration)
		if err != nil {
			return err
		}
		if err := e.sessions.Create(ctx, session); err != nil {
			switch {
			case errors.Is(err, ErrAlreadyExists):
				return err
			case errors.Is(err, ErrNotFound):
				// The user was deleted between the lookup and the insert.
				return userNotFoundError(userID)
			}
			return oops.Code("SESSION_CREATE_FAILED").
				With("operation", "insert session").
				With("user_id", userID).
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ValidateSession returns the owning user of a valid session. Unknown,
// revoked and expired tokens all yield (nil, false, nil). A token whose
// length no issued token can have is unknown without a storage lookup.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*User, bool, error) {
	ctx, span := e.tracer.Start(ctx, "auth.ValidateSession")
	defer span.End()

	if !plausibleTokenLength(token) {
		SessionValidations.WithLabelValues(ResultUnknown).Inc()
		return nil, false, nil
	}

	var user *User
	result := ResultUnknown
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		session, err := e.sessions.GetByToken(ctx, e.cfg.TokenStorage.StorageKey(token))
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return oops.Code("SESSION_VALIDATE_FAILED").
				With("operation", "get session by token").
				Wrap(err)
		}

		switch session.StatusAt(e.now()) {
		case SessionRevoked:
			result = ResultRevoked
			return nil
		case SessionExpired:
			result = ResultExpired
			return nil
		}

		owner, err := e.users.GetByID(ctx, session.UserID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return oops.Code("SESSION_VALIDATE_FAILED").
				With("operation", "get session owner").
				With("user_id", session.UserID).
				Wrap(err)
		}
		user = owner
		result = ResultSuccess
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	SessionValidations.WithLabelValues(result).Inc()
	return user, user != nil, nil
}

// RevokeSession marks the session revoked. It returns true if a session with
// this token exists, including one that was already revoked.
func (e *Engine) RevokeSession(ctx context.Context, token string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "auth.RevokeSession")
	defer span.End()

	if token == "" {
		return false, nil
	}

	found := false
	changed := false
	var userID int64
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		session, err := e.sessions.GetByToken(ctx, e.cfg.TokenStorage.StorageKey(token))
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return oops.Code("SESSION_REVOKE_FAILED").
				With("operation", "get session by token").
				Wrap(err)
		}
		found = true
		userID = session.UserID
		if session.Revoked {
			return nil
		}
		if err := e.sessions.Revoke(ctx, session.ID); err != nil {
			return oops.Code("SESSION_REVOKE_FAILED").
				With("operation", "revoke session").
				With("session_id", session.ID).
				Wrap(err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		SessionsRevoked.Inc()
		e.logger.InfoContext(ctx, "session revoked", "user_id", userID)
	}
	return found, nil
}

// RevokeSessions revokes every non-revoked session of the user and returns
// how many were revoked. Sessions already revoked are not counted.
func (e *Engine) RevokeSessions(ctx context.Context, userID int64) (int, error) {
	ctx, span := e.tracer.Start(ctx, "auth.RevokeSessions", trace.WithAttributes(attribute.Int64("user_id", userID)))
	defer span.End()

	var count int64
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		n, err := e.sessions.RevokeByUser(ctx, userID)
		if err != nil {
			return oops.Code("SESSION_REVOKE_FAILED").
				With("operation", "revoke sessions by user").
				With("user_id", userID).
				Wrap(err)
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	if count > 0 {
		SessionsRevoked.Add(float64(count))
		e.logger.InfoContext(ctx, "sessions revoked",
			"user_id", userID,
			"count", count)
	}
	return int(count), nil
}

// Login authenticates and issues a session in one step. The boolean is false
// on authentication failure.
func (e *Engine) Login(ctx context.Context, username, password string) (string, bool, error) {
	user, ok, err := e.AuthenticateUser(ctx, username, password)
	if err != nil || !ok {
		return "", false, err
	}

	token, err := e.CreateSession(ctx, user.ID)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Logout revokes the session identified by token.
func (e *Engine) Logout(ctx context.Context, token string) (bool, error) {
	return e.RevokeSession(ctx, token)
}

// DeleteUser removes the user and all of their sessions. Returns false if
// the user does not exist.
func (e *Engine) DeleteUser(ctx context.Context, username string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "auth.DeleteUser")
	defer span.End()

	var deleted *User
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		user, err := e.lookupUser(ctx, username)
		if err != nil || user == nil {
			return err
		}
		if err := e.users.Delete(ctx, user.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return oops.Code("USER_DELETE_FAILED").
				With("operation", "delete user").
				With("user_id", user.ID).
				Wrap(err)
		}
		deleted = user
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted == nil {
		return false, nil
	}

	UsersDeleted.Inc()
	e.logger.InfoContext(ctx, "user deleted",
		"user_id", deleted.ID,
		"username", deleted.Username)
	return true, nil
}

// SetUserActive enables or disables a user. Returns false if the user does not exist.
// Disabling a user does not revoke existing sessions.
func (e *Engine) SetUserActive(ctx context.Context, username string, active bool) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "auth.SetUserActive")
	defer span.End()

	found := false
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		user, err := e.lookupUser(ctx, username)
		if err != nil || user == nil {
			return err
		}
		if err := e.users.SetActive(ctx, user.ID, active, e.now()); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return oops.Code("USER_UPDATE_FAILED").
				With("operation", "set active").
				With("user_id", user.ID).
				Wrap(err)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if found {
		e.logger.InfoContext(ctx, "user active flag changed",
			"username", username,
			"active", active)
	}
	return found, nil
}

// ListUsers returns every user ordered by ID.
func (e *Engine) ListUsers(ctx context.Context) ([]*User, error) {
	ctx, span := e.tracer.Start(ctx, "auth.ListUsers")
	defer span.End()

	var users []*User
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		users, err = e.users.List(ctx)
		if err != nil {
			return oops.Code("USER_LIST_FAILED").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListSessions returns sessions ordered by ID, restricted to one user when
// username is non-empty.
func (e *Engine) ListSessions(ctx context.Context, username string) ([]*SessionInfo, error) {
	ctx, span := e.tracer.Start(ctx, "auth.ListSessions")
	defer span.End()

	var sessions []*SessionInfo
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		sessions, err = e.sessions.List(ctx, SessionFilter{Username: username})
		if err != nil {
			return oops.Code("SESSION_LIST_FAILED").
				With("username", username).
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// plausibleTokenLength reports whether token has the hex length of a token
// of MinTokenLength to MaxTokenLength bytes.
func plausibleTokenLength(token string) bool {
	n := len(token)
	return n >= 2*MinTokenLength && n <= 2*MaxTokenLength
}

// lookupUser returns (nil, nil) when the username is unknown.
func (e *Engine) lookupUser(ctx context.Context, username string) (*User, error) {
	user, err := e.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}
