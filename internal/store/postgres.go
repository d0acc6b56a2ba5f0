// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store opens storage backends and manages their schema.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultConnectTimeout bounds how long OpenPostgresPool waits for the
// server to accept connections.
const DefaultConnectTimeout = 10 * time.Second

const (
	pingBaseDelay = 100 * time.Millisecond
	pingMaxDelay  = 2 * time.Second
)

// postgresDSN rewrites the golang-migrate pgx5:// scheme into one pgx accepts.
func postgresDSN(databaseURL string) string {
	if rest, found := strings.CutPrefix(databaseURL, "pgx5://"); found {
		return "postgres://" + rest
	}
	return databaseURL
}

// OpenPostgresPool creates a connection pool and waits until the server
// answers a ping. Pings are retried with capped exponential backoff until
// connectTimeout elapses; a non-positive timeout uses DefaultConnectTimeout.
func OpenPostgresPool(ctx context.Context, databaseURL string, connectTimeout time.Duration) (*pgxpool.Pool, error) {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	cfg, err := pgxpool.ParseConfig(postgresDSN(databaseURL))
	if err != nil {
		return nil, oops.Code("DATABASE_URL_INVALID").
			With("operation", "parse postgres config").
			Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	backoff := retry.WithCappedDuration(pingMaxDelay, retry.NewExponential(pingBaseDelay))
	err = retry.Do(pingCtx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("operation", "ping").
			With("host", cfg.ConnConfig.Host).
			With("timeout", connectTimeout.String()).
			Wrap(err)
	}
	return pool, nil
}
