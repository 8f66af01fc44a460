// Package sqlite is the default gallery store backend: a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/kozaktomas/facelog/internal/config"
	"github.com/kozaktomas/facelog/internal/database"
	"github.com/kozaktomas/facelog/internal/database/sqlstore"
	_ "modernc.org/sqlite"
)

// Dialect is the SQLite flavour of the faces table.
var Dialect = sqlstore.Dialect{
	Name: config.DriverSQLite,
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		"timestamp" TEXT,
		name TEXT,
		fingerprint BLOB,
		image BLOB
	)`,
	TableExists: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	Placeholder: sqlstore.QuestionPlaceholder,
	QuoteIdent:  sqlstore.DoubleQuote,
}

func init() {
	database.RegisterBackend(config.DriverSQLite, func(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
		return Open(ctx, cfg.Path, cfg.Table)
	})
	database.RegisterReader(config.DriverSQLite, func(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
		return OpenReadOnly(ctx, cfg.Path, cfg.Table)
	})
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path, table string) (*sqlstore.Store, error) {
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers and keeps the pragmas below in effect.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}

	store, err := sqlstore.New(db, Dialect, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// OpenReadOnly opens an existing SQLite database at path without writing to it.
// The file is never created and the journal mode is left as it is.
func OpenReadOnly(ctx context.Context, path, table string) (*sqlstore.Store, error) {
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := sqlstore.New(db, Dialect, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
