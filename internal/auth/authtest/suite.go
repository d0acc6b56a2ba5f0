// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides helpers for exercising auth storage backends
// through the engine.
package authtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/keyward/internal/auth"
)

// StoreFactory returns a fresh, migrated, empty store for one test.
type StoreFactory func(t *testing.T) auth.Store

// Clock is a manually advanced clock. It starts at a millisecond boundary so
// backends that store millisecond timestamps round-trip exactly.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to 2026-03-01T12:00:00Z.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FastHasher returns an argon2id hasher with minimal cost for tests.
func FastHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(auth.HasherParams{
		Time:    1,
		Memory:  8 * 1024,
		Threads: 1,
		SaltLen: 16,
		KeyLen:  32,
	})
	require.NoError(t, err)
	return h
}

// NewEngine builds an engine over store with a fast hasher and clock.
func NewEngine(t *testing.T, store auth.Store, cfg auth.EngineConfig, clock *Clock) *auth.Engine {
	t.Helper()
	engine, err := auth.NewEngine(store, FastHasher(t), cfg, auth.WithClock(clock.Now))
	require.NoError(t, err)
	return engine
}

// RunStoreSuite runs the engine scenarios every storage backend must pass.
func RunStoreSuite(t *testing.T, newStore StoreFactory) {
	t.Helper()

	setup := func(t *testing.T, cfg auth.EngineConfig) (*auth.Engine, *Clock) {
		t.Helper()
		clock := NewClock()
		return NewEngine(t, newStore(t), cfg, clock), clock
	}

	t.Run("create user and reject duplicate", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		user, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)
		assert.Positive(t, user.ID)
		assert.True(t, user.Active)

		_, err = engine.CreateUser(ctx, "alice", "other")
		require.Error(t, err)
		assert.True(t, auth.IsDuplicateUser(err))

		got, found, err := engine.GetUser(ctx, "alice")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEqual(t, "secret123", got.PasswordHash)

		_, found, err = engine.GetUser(ctx, "Alice")
		require.NoError(t, err)
		assert.False(t, found, "usernames are case-sensitive")

		byID, found, err := engine.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "alice", byID.Username)
	})

	t.Run("user IDs are distinct", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		a, err := engine.CreateUser(ctx, "alice", "pw-a")
		require.NoError(t, err)
		b, err := engine.CreateUser(ctx, "bob", "pw-b")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)

		users, err := engine.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "bob", users[1].Username)
	})

	t.Run("login and validate", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		user, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)

		token, ok, err := engine.Login(ctx, "alice", "secret123")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, token, 2*auth.DefaultTokenLength)

		owner, found, err := engine.ValidateSession(ctx, token)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, user.ID, owner.ID)

		_, ok, err = engine.Login(ctx, "alice", "wrongpass")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = engine.Login(ctx, "nobody", "secret123")
		require.NoError(t, err)
		assert.False(t, ok)

		_, found, err = engine.ValidateSession(ctx, "not-a-token")
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = engine.ValidateSession(ctx, "")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("session for missing user", func(t *testing.T) {
		engine, _ := setup(t, auth.DefaultEngineConfig())

		_, err := engine.CreateSession(context.Background(), 9999)
		require.Error(t, err)
		assert.True(t, auth.IsUserNotFound(err))
	})

	t.Run("session expiry", func(t *testing.T) {
		ctx := context.Background()
		cfg := auth.DefaultEngineConfig()
		cfg.SessionDuration = time.Hour
		engine, clock := setup(t, cfg)

		user, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)
		token, err := engine.CreateSession(ctx, user.ID)
		require.NoError(t, err)

		clock.Advance(time.Hour)
		_, found, err := engine.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.True(t, found, "session is valid at its expiry instant")

		clock.Advance(time.Millisecond)
		_, found, err = engine.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.False(t, found)

		sessions, err := engine.ListSessions(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, auth.SessionExpired, sessions[0].StatusAt(engine.Now()))
	})

	t.Run("zero duration never expires", func(t *testing.T) {
		ctx := context.Background()
		cfg := auth.DefaultEngineConfig()
		cfg.SessionDuration = 0
		engine, clock := setup(t, cfg)

		user, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)
		token, err := engine.CreateSession(ctx, user.ID)
		require.NoError(t, err)

		clock.Advance(10 * 365 * 24 * time.Hour)
		_, found, err := engine.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.True(t, found)

		sessions, err := engine.ListSessions(ctx, "")
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Nil(t, sessions[0].ExpiresAt)
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		_, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)
		token, ok, err := engine.Login(ctx, "alice", "secret123")
		require.NoError(t, err)
		require.True(t, ok)

		revoked, err := engine.RevokeSession(ctx, token)
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = engine.Logout(ctx, token)
		require.NoError(t, err)
		assert.True(t, revoked, "revoking an already revoked session still reports found")

		_, found, err := engine.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.False(t, found)

		revoked, err = engine.RevokeSession(ctx, "unknown")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoke all sessions of a user", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		alice, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)
		bob, err := engine.CreateUser(ctx, "bob", "hunter22")
		require.NoError(t, err)

		var aliceTokens []string
		for range 3 {
			token, err := engine.CreateSession(ctx, alice.ID)
			require.NoError(t, err)
			aliceTokens = append(aliceTokens, token)
		}
		bobToken, err := engine.CreateSession(ctx, bob.ID)
		require.NoError(t, err)

		// One already revoked session is not counted again.
		_, err = engine.RevokeSession(ctx, aliceTokens[0])
		require.NoError(t, err)

		n, err := engine.RevokeSessions(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = engine.RevokeSessions(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		for _, token := range aliceTokens {
			_, found, err := engine.ValidateSession(ctx, token)
			require.NoError(t, err)
			assert.False(t, found)
		}
		_, found, err := engine.ValidateSession(ctx, bobToken)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("delete user cascades to sessions", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		_, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)
		token, ok, err := engine.Login(ctx, "alice", "secret123")
		require.NoError(t, err)
		require.True(t, ok)

		deleted, err := engine.DeleteUser(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, deleted)

		_, found, err := engine.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.False(t, found)

		sessions, err := engine.ListSessions(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, sessions)

		deleted, err = engine.DeleteUser(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, deleted)

		// The username is free again.
		_, err = engine.CreateUser(ctx, "alice", "secret456")
		require.NoError(t, err)
	})

	t.Run("inactive user", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		user, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)

		changed, err := engine.SetUserActive(ctx, "alice", false)
		require.NoError(t, err)
		assert.True(t, changed)

		_, ok, err := engine.Login(ctx, "alice", "secret123")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = engine.CreateSession(ctx, user.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrUserInactive))

		got, found, err := engine.GetUser(ctx, "alice")
		require.NoError(t, err)
		require.True(t, found)
		assert.False(t, got.Active)

		_, err = engine.SetUserActive(ctx, "alice", true)
		require.NoError(t, err)
		_, ok, err = engine.Login(ctx, "alice", "secret123")
		require.NoError(t, err)
		assert.True(t, ok)

		changed, err = engine.SetUserActive(ctx, "nobody", true)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("list sessions by user", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		alice, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)
		bob, err := engine.CreateUser(ctx, "bob", "hunter22")
		require.NoError(t, err)
		_, err = engine.CreateSession(ctx, alice.ID)
		require.NoError(t, err)
		_, err = engine.CreateSession(ctx, bob.ID)
		require.NoError(t, err)
		_, err = engine.CreateSession(ctx, alice.ID)
		require.NoError(t, err)

		all, err := engine.ListSessions(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"alice", "bob", "alice"},
			[]string{all[0].Username, all[1].Username, all[2].Username})
		assert.Less(t, all[0].ID, all[1].ID)

		mine, err := engine.ListSessions(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		for _, s := range mine {
			assert.Equal(t, alice.ID, s.UserID)
		}

		none, err := engine.ListSessions(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("sha256 token storage", func(t *testing.T) {
		ctx := context.Background()
		cfg := auth.DefaultEngineConfig()
		cfg.TokenStorage = auth.TokenStorageSHA256
		engine, _ := setup(t, cfg)

		_, err := engine.CreateUser(ctx, "alice", "secret123")
		require.NoError(t, err)
		token, ok, err := engine.Login(ctx, "alice", "secret123")
		require.NoError(t, err)
		require.True(t, ok)

		sessions, err := engine.ListSessions(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.NotEqual(t, token, sessions[0].Token)
		assert.Equal(t, auth.HashToken(token), sessions[0].Token)

		_, found, err := engine.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.True(t, found)

		_, found, err = engine.ValidateSession(ctx, sessions[0].Token)
		require.NoError(t, err)
		assert.False(t, found, "the stored digest is not a usable token")
	})

	t.Run("concurrent duplicate creation", func(t *testing.T) {
		ctx := context.Background()
		engine, _ := setup(t, auth.DefaultEngineConfig())

		const workers = 8
		var (
			wg         sync.WaitGroup
			mu         sync.Mutex
			created    int
			duplicates int
			failures   []error
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := engine.CreateUser(ctx, "carol", "secret123")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case auth.IsDuplicateUser(err):
					duplicates++
				default:
					failures = append(failures, err)
				}
			}()
		}
		wg.Wait()

		assert.Empty(t, failures)
		assert.Equal(t, 1, created)
		assert.Equal(t, workers-1, duplicates)
	})
}
