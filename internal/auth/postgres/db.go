// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the auth storage contract on PostgreSQL using pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/holomush/keyward/internal/auth"
)

// querier executes statements. Both a pool and a pgx.Tx satisfy it.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// poolIface is the subset of *pgxpool.Pool used by this package.
// pgxmock.PgxPoolIface also satisfies it.
type poolIface interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// txKey is the context key for the active transaction.
type txKey struct{}

// conn returns the transaction stored in ctx, or the pool when there is none.
func conn(ctx context.Context, pool poolIface) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// NewStore wires the transactor and repositories over one pool.
func NewStore(pool poolIface) auth.Store {
	return auth.Store{
		Transactor: NewTransactor(pool),
		Users:      NewUserRepository(pool),
		Sessions:   NewSessionRepository(pool),
	}
}
