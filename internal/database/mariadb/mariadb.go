// Package mariadb stores the gallery in a MariaDB or MySQL table.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/facelog/internal/config"
	"github.com/kozaktomas/facelog/internal/database"
	"github.com/kozaktomas/facelog/internal/database/sqlstore"
)

// Dialect is the MariaDB flavour of the faces table.
var Dialect = sqlstore.Dialect{
	Name: config.DriverMySQL,
	CreateTable: "CREATE TABLE IF NOT EXISTS %s (" +
		"id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY, " +
		"`timestamp` VARCHAR(32), " +
		"name VARCHAR(255), " +
		"fingerprint LONGBLOB, " +
		"image LONGBLOB" +
		") CHARACTER SET utf8mb4",
	TableExists: "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
	Placeholder: sqlstore.QuestionPlaceholder,
	QuoteIdent:  sqlstore.Backtick,
}

func init() {
	database.RegisterBackend(config.DriverMySQL, func(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
		db, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store, err := sqlstore.New(db, Dialect, cfg.Table)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil
	})
}

// NewPool creates a MariaDB connection pool from a go-sql-driver DSN
// such as "user:pass@tcp(localhost:3306)/faces".
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn, err := mysql.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return db, nil
}
