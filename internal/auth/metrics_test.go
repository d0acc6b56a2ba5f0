// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/keyward/internal/auth"
)

// TestRegisterMetrics verifies all collectors register without conflict.
func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { auth.RegisterMetrics(reg) })

	auth.Authentications.WithLabelValues(auth.ResultSuccess)
	auth.SessionValidations.WithLabelValues(auth.ResultSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)

	registered := make(map[string]bool)
	for _, family := range families {
		registered[family.GetName()] = true
	}
	for _, name := range []string{
		"keyward_authentications_total",
		"keyward_session_validations_total",
		"keyward_sessions_issued_total",
		"keyward_sessions_revoked_total",
		"keyward_session_token_collisions_total",
		"keyward_users_created_total",
		"keyward_users_deleted_total",
	} {
		assert.True(t, registered[name], "metric %q should be registered", name)
	}
}

func TestMetrics_AuthenticationResults(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, auth.DefaultEngineConfig())
	alice := activeUser(1, "alice")
	f.users.On("GetByUsername", mock.Anything, "alice").Return(alice, nil)
	f.verifier.On("Verify", "secret123", alice.PasswordHash).Return(true)
	f.verifier.On("Verify", "wrongpass", alice.PasswordHash).Return(false)

	success := testutil.ToFloat64(auth.Authentications.WithLabelValues(auth.ResultSuccess))
	invalid := testutil.ToFloat64(auth.Authentications.WithLabelValues(auth.ResultInvalidCredentials))

	_, _, err := f.engine.AuthenticateUser(ctx, "alice", "secret123")
	require.NoError(t, err)
	_, _, err = f.engine.AuthenticateUser(ctx, "alice", "wrongpass")
	require.NoError(t, err)

	assert.Equal(t, success+1, testutil.ToFloat64(auth.Authentications.WithLabelValues(auth.ResultSuccess)))
	assert.Equal(t, invalid+1, testutil.ToFloat64(auth.Authentications.WithLabelValues(auth.ResultInvalidCredentials)))
}

func TestMetrics_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, auth.DefaultEngineConfig())
	f.users.On("GetByID", mock.Anything, int64(1)).Return(activeUser(1, "alice"), nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("RevokeByUser", mock.Anything, int64(1)).Return(int64(3), nil)

	past := fixedNow.Add(-time.Minute)
	f.sessions.On("GetByToken", mock.Anything, validToken).
		Return(&auth.Session{ID: 2, UserID: 1, Token: validToken, ExpiresAt: &past}, nil)

	issued := testutil.ToFloat64(auth.SessionsIssued)
	revoked := testutil.ToFloat64(auth.SessionsRevoked)
	expired := testutil.ToFloat64(auth.SessionValidations.WithLabelValues(auth.ResultExpired))

	_, err := f.engine.CreateSession(ctx, 1)
	require.NoError(t, err)
	_, err = f.engine.RevokeSessions(ctx, 1)
	require.NoError(t, err)
	_, _, err = f.engine.ValidateSession(ctx, validToken)
	require.NoError(t, err)

	assert.Equal(t, issued+1, testutil.ToFloat64(auth.SessionsIssued))
	assert.Equal(t, revoked+3, testutil.ToFloat64(auth.SessionsRevoked))
	assert.Equal(t, expired+1, testutil.ToFloat64(auth.SessionValidations.WithLabelValues(auth.ResultExpired)))
}
