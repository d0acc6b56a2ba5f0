// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/samber/oops"
	// Register the modernc SQLite driver as "sqlite".
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every pooled connection. Foreign keys are
// required for ON DELETE CASCADE; immediate transactions serialize writers
// on busy_timeout instead of failing at commit.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// SQLitePath extracts the file path from a sqlite:// or sqlite3:// URL.
func SQLitePath(databaseURL string) (string, error) {
	for _, prefix := range []string{"sqlite://", "sqlite3://"} {
		if rest, found := strings.CutPrefix(databaseURL, prefix); found {
			if rest == "" {
				return "", oops.Code("DATABASE_URL_INVALID").Errorf("sqlite URL has no path")
			}
			return rest, nil
		}
	}
	return "", oops.Code("DATABASE_URL_INVALID").
		Errorf("not a sqlite URL: expected sqlite://path")
}

// sqliteDSN appends the connection pragmas to path.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

// OpenSQLite opens the database file at path and verifies the connection.
// In-memory databases are not supported because every pooled connection
// would see a different database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil, oops.Code("DATABASE_URL_INVALID").
			With("path", path).
			Errorf("sqlite requires a file path")
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("operation", "open sqlite").
			With("path", path).
			Wrap(err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("operation", "ping sqlite").
			With("path", path).
			Wrap(err)
	}
	return db, nil
}
