// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package sqlite

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraintViolation reports whether err is a SQLite constraint failure
// whose message mentions kind ("UNIQUE", "FOREIGN KEY").
func constraintViolation(err error, kind string) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	return strings.Contains(sqliteErr.Error(), kind)
}

func isUniqueViolation(err error) bool {
	return constraintViolation(err, "UNIQUE")
}

func isForeignKeyViolation(err error) bool {
	return constraintViolation(err, "FOREIGN KEY")
}
