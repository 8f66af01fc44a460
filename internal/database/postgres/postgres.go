// Package postgres stores the gallery in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facelog/internal/config"
	"github.com/kozaktomas/facelog/internal/database"
	"github.com/kozaktomas/facelog/internal/database/sqlstore"
	_ "github.com/lib/pq"
)

// Dialect is the PostgreSQL flavour of the faces table.
var Dialect = sqlstore.Dialect{
	Name: config.DriverPostgres,
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		"timestamp" TEXT,
		name TEXT,
		fingerprint BYTEA,
		image BYTEA
	)`,
	TableExists: "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = lower($1)",
	Placeholder: sqlstore.DollarPlaceholder,
	QuoteIdent:  sqlstore.DoubleQuote,
	ReturningID: true,
}

func init() {
	database.RegisterBackend(config.DriverPostgres, func(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
		db, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store, err := sqlstore.New(db, Dialect, cfg.Table)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	})
}

// NewPool opens and verifies a PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
