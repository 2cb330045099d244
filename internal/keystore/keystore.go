// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keystore persists named SSH keys in SQLite, PostgreSQL or MySQL.
// Each entry keeps the public text line, its SHA256 fingerprint and, when
// the key was stored with private material, the serialized private blob.
package keystore // import "github.com/toeirei/keycore/internal/keystore"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/toeirei/keycore/internal/logging"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// Store is a handle on an opened key store. It is safe for concurrent use.
type Store struct {
	db     *bun.DB
	dbType string
}

// Open connects to the database described by dbType ("sqlite", "postgres"
// or "mysql") and dsn, and creates the schema when missing.
func Open(ctx context.Context, dbType, dsn string) (*Store, error) {
	driverName, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := envInt("KEYCORE_DB_MAX_OPEN_CONNS", 10)
	// Every connection to ":memory:" is a separate database.
	if dbType == "sqlite" && dsn == ":memory:" {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(envInt("KEYCORE_DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)

	s := &Store{db: createBunDB(sqlDB, dbType), dbType: dbType}
	if err := s.migrate(ctx); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logging.Debugf("keystore: opened %s in %s (max open=%d)", driverName, time.Since(start), maxOpen)
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Type reports the database flavour the store was opened with.
func (s *Store) Type() string { return s.dbType }

func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "mysql":
		return dbType, nil
	case "postgres":
		// pgx/stdlib registers itself as "pgx".
		return "pgx", nil
	default:
		return "", fmt.Errorf("keystore: unsupported database type %q", dbType)
	}
}

// createBunDB wraps sqlDB with the bun dialect matching dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Entry)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		logging.Warnf("keystore: ignoring %s=%q", name, v)
	}
	return def
}
