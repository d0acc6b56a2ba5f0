// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/keyward/internal/auth"
	"github.com/holomush/keyward/pkg/errutil"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"simple", "alice", false},
		{"with space inside", "alice smith", false},
		{"unicode", "ålice", false},
		{"max length", strings.Repeat("a", auth.MaxUsernameLength), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", auth.MaxUsernameLength+1), true},
		{"leading space", " alice", true},
		{"trailing newline", "alice\n", true},
		{"control character", "al\x00ice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateUsername(tt.username)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "AUTH_INVALID_USERNAME")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewUser(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("creates active user", func(t *testing.T) {
		u, err := auth.NewUser("alice", "hash", now)
		require.NoError(t, err)
		assert.Zero(t, u.ID)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "hash", u.PasswordHash)
		assert.True(t, u.Active)
		assert.Equal(t, now, u.CreatedAt)
		assert.Equal(t, now, u.UpdatedAt)
	})

	t.Run("rejects empty hash", func(t *testing.T) {
		_, err := auth.NewUser("alice", "", now)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_INVALID_HASH")
	})

	t.Run("rejects invalid username", func(t *testing.T) {
		_, err := auth.NewUser("", "hash", now)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_USERNAME")
	})
}
