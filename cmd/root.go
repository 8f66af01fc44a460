package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/facelog/internal/config"
	"github.com/kozaktomas/facelog/internal/database"
	_ "github.com/kozaktomas/facelog/internal/database/mariadb"
	_ "github.com/kozaktomas/facelog/internal/database/postgres"
	_ "github.com/kozaktomas/facelog/internal/database/sqlite"
	"github.com/spf13/cobra"
)

var (
	dbDriver string
	dbPath   string
	dbTable  string
)

var rootCmd = &cobra.Command{
	Use:   "facelog",
	Short: "Capture, recognize and log faces from a webcam",
	Long: `facelog watches a camera, detects faces, matches them against the faces it
has seen before and logs every sighting (timestamp, label, fingerprint and a
cropped JPEG) into a SQL table. Unknown faces get a new PersonId<n> label.

Stored sightings can be browsed with 'facelog review' and exported with
'facelog export'.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Database driver: sqlite, postgres or mysql (default from FACELOG_DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (default from FACELOG_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&dbTable, "table", "", "Faces table name (default from FACELOG_DB_TABLE)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig loads the configuration and applies the persistent database flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if dbTable != "" {
		cfg.Database.Table = dbTable
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured gallery store and creates its table if needed.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openReader opens an existing gallery store read-only. A missing store or table is an error.
func openReader(ctx context.Context, cfg *config.Config) (database.Store, error) {
	return database.OpenReader(ctx, &cfg.Database)
}

// describeStore returns a human readable location of the store.
func describeStore(cfg *config.Config) string {
	if cfg.Database.Driver == config.DriverSQLite {
		return fmt.Sprintf("%s (table %s)", cfg.Database.Path, cfg.Database.Table)
	}
	return fmt.Sprintf("%s database (table %s)", cfg.Database.Driver, cfg.Database.Table)
}
