// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/keyward/internal/auth"
	"github.com/holomush/keyward/internal/auth/authtest"
	"github.com/holomush/keyward/internal/auth/postgres"
	"github.com/holomush/keyward/internal/store"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("keyward_test"),
		tcpostgres.WithUsername("keyward"),
		tcpostgres.WithPassword("keyward"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres container: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
		return 1
	}

	if err := store.MigrateUp(ctx, connStr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}

	testPool, err = store.OpenPostgresPool(ctx, connStr, 30*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	return m.Run()
}

// freshStore empties the tables and returns a store over the shared pool.
// Tests using it must not run in parallel.
func freshStore(t *testing.T) auth.Store {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE sessions, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return postgres.NewStore(testPool)
}

func TestPostgresStore_Engine(t *testing.T) {
	authtest.RunStoreSuite(t, freshStore)
}
