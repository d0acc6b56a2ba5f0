// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/keyward/pkg/errutil"
)

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pgx5://u:p@localhost:5432/db", "postgres://u:p@localhost:5432/db"},
		{"postgres://u:p@localhost/db", "postgres://u:p@localhost/db"},
		{"postgresql://localhost/db?sslmode=disable", "postgresql://localhost/db?sslmode=disable"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, postgresDSN(tt.in))
		})
	}
}

func TestOpenPostgresPool_InvalidURL(t *testing.T) {
	pool, err := OpenPostgresPool(context.Background(), "postgres://localhost:notaport/db", time.Second)
	require.Error(t, err)
	assert.Nil(t, pool)
	errutil.AssertErrorCode(t, err, "DATABASE_URL_INVALID")
}

func TestOpenPostgresPool_Unreachable(t *testing.T) {
	// Port 1 on loopback refuses connections immediately.
	pool, err := OpenPostgresPool(context.Background(),
		"postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1", 300*time.Millisecond)
	require.Error(t, err)
	assert.Nil(t, pool)
	errutil.AssertErrorCode(t, err, "DATABASE_CONNECT_FAILED")
}
