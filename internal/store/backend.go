// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/keyward/internal/auth"
	"github.com/holomush/keyward/internal/auth/postgres"
	"github.com/holomush/keyward/internal/auth/sqlite"
)

// BackendConfig selects and tunes a storage backend.
type BackendConfig struct {
	// URL is a postgres:// or sqlite:// database URL.
	URL string
	// ConnectTimeout bounds the initial connection attempt (PostgreSQL only).
	ConnectTimeout time.Duration
	// AutoMigrate applies pending migrations once the database is reachable.
	AutoMigrate bool
	// Logger receives migration progress. Nil uses slog.Default().
	Logger *slog.Logger
}

// Backend is an opened storage backend.
type Backend struct {
	auth.Store
	Dialect Dialect

	close func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend opens the backend named by the URL scheme. With AutoMigrate
// set, migrations run only after the connection is established.
func OpenBackend(ctx context.Context, cfg BackendConfig) (*Backend, error) {
	dialect, err := DialectFromURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	backend, err := openDialect(ctx, dialect, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := MigrateUp(ctx, cfg.URL, cfg.Logger); err != nil {
			_ = backend.Close() //nolint:errcheck // migration error takes precedence
			return nil, err
		}
	}
	return backend, nil
}

func openDialect(ctx context.Context, dialect Dialect, cfg BackendConfig) (*Backend, error) {
	switch dialect {
	case DialectPostgres:
		pool, err := OpenPostgresPool(ctx, cfg.URL, cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store:   postgres.NewStore(pool),
			Dialect: dialect,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	default:
		path, err := SQLitePath(cfg.URL)
		if err != nil {
			return nil, err
		}
		db, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store:   sqlite.NewStore(db),
			Dialect: dialect,
			close: func() error {
				if err := db.Close(); err != nil {
					return oops.Code("DATABASE_CLOSE_FAILED").Wrap(err)
				}
				return nil
			},
		}, nil
	}
}

// MigrateUp applies all pending migrations for the database at databaseURL.
// A nil logger uses slog.Default().
func MigrateUp(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	migrator, err := NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.WarnContext(ctx, "failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return err
	}

	version, _, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "schema up to date",
		"dialect", string(migrator.Dialect()),
		"version", version)
	return nil
}
