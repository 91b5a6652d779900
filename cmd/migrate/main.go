package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/liamcoop/courtextract/internal/logger"
	"github.com/liamcoop/courtextract/patterns"
)

// Each store has its own migrations directory, database URL variable and
// migrations table so stores can share one database.
var stores = map[string]string{
	"display":  "DISPLAY_DATABASE_URL",
	"batch":    "BATCH_DATABASE_URL",
	"patterns": "PATTERN_DATABASE_URL",
}

func main() {
	var databaseURL string
	var migrationsRoot string
	var store string
	var command string
	var importDir string

	flag.StringVar(&databaseURL, "database", "", "Database URL (default: the store's *_DATABASE_URL)")
	flag.StringVar(&migrationsRoot, "path", "migrations", "Root of the per-store migrations directories")
	flag.StringVar(&store, "store", "display", "Store to migrate: display, batch, patterns")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force, import")
	flag.StringVar(&importDir, "import", "config/patterns", "Rule file directory for -command import")
	flag.Parse()

	envKey, ok := stores[store]
	if !ok {
		logger.Fatal("Unknown store (use: display, batch, patterns)", "store", store)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv(envKey)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		logger.Fatal("Database URL is required. Use -database flag or " + envKey)
	}

	if command == "import" {
		if store != "patterns" {
			logger.Fatal("import only applies to -store patterns")
		}
		if err := importRules(context.Background(), databaseURL, importDir); err != nil {
			logger.Fatal("Import failed", "error", err)
		}
		return
	}

	migrationsPath := filepath.Join(migrationsRoot, store)
	logger.Info("Connecting to database", "store", store, "migrations", migrationsPath)

	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		withMigrationsTable(databaseURL, "schema_migrations_"+store),
	)
	if err != nil {
		logger.Fatal("Failed to create migration instance", "error", err)
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Failed to run migrations", "error", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migrations to run (database is up to date)", "store", store)
		} else {
			logger.Info("Migrations completed", "store", store)
		}

	case "down":
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Failed to rollback migrations", "error", err)
		}
		logger.Info("Rollback completed", "store", store)

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			logger.Fatal("Failed to get version", "error", err)
		}
		logger.Info("Current version", "store", store, "version", version, "dirty", dirty)

	case "force":
		if len(flag.Args()) < 1 {
			logger.Fatal("Force command requires a version number: -command force <version>")
		}
		var version int
		if _, err := fmt.Sscanf(flag.Arg(0), "%d", &version); err != nil {
			logger.Fatal("Invalid version number", "error", err)
		}
		if err := m.Force(version); err != nil {
			logger.Fatal("Failed to force version", "error", err)
		}
		logger.Info("Forced version", "store", store, "version", version)

	default:
		logger.Fatal("Unknown command (use: up, down, version, force, import)", "command", command)
	}
}

// withMigrationsTable sets golang-migrate's x-migrations-table option.
func withMigrationsTable(databaseURL, table string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return databaseURL
	}
	q := u.Query()
	if q.Get("x-migrations-table") == "" {
		q.Set("x-migrations-table", table)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// importRules copies every rule file in dir into the PostgreSQL pattern store.
func importRules(ctx context.Context, databaseURL, dir string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	files := patterns.NewFileStore(dir)
	jurisdictions, err := files.List(ctx)
	if err != nil {
		return err
	}

	pg := patterns.NewPostgresStore(db)
	for _, j := range jurisdictions {
		set, err := files.Load(ctx, j)
		if err != nil {
			return err
		}
		if err := pg.Import(ctx, set); err != nil {
			return err
		}
		logger.Info("Imported rule set", "jurisdiction", j, "rules", len(set.Rules))
	}
	return nil
}
