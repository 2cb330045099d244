// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"database/sql"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no entry has the requested name.
	ErrNotFound = errors.New("keystore: key not found")
	// ErrDuplicate is returned when an entry with the same name exists.
	ErrDuplicate = errors.New("keystore: duplicate key name")
)

// MapDBError maps driver errors onto the package sentinels. Matching is done
// on the message so no driver types leak into callers.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	le := strings.ToLower(err.Error())
	// MySQL duplicate entry (1062), Postgres unique violation (23505), SQLite unique constraint
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return ErrDuplicate
	}
	return err
}
