// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sqlite implements the auth storage contract on SQLite using the
// pure-Go modernc.org/sqlite driver.
//
// Timestamps are stored as Unix milliseconds in UTC.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/holomush/keyward/internal/auth"
)

// querier executes statements. Both *sql.DB and *sql.Tx satisfy it.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txKey is the context key for the active transaction.
type txKey struct{}

// conn returns the transaction stored in ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// NewStore wires the transactor and repositories over one database handle.
// The schema must already be migrated.
func NewStore(db *sql.DB) auth.Store {
	return auth.Store{
		Transactor: NewTransactor(db),
		Users:      NewUserRepository(db),
		Sessions:   NewSessionRepository(db),
	}
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
