// ===============================
// internal/database/migrations.go - Episode Catalog Schema
// ===============================

package database

import (
	"context"
	"fmt"

	"dramafeed/internal/config"
	"dramafeed/internal/logging"

	"github.com/jmoiron/sqlx"
)

// Migration is one versioned schema step with a statement per dialect
type Migration struct {
	Version  string
	Postgres string
	SQLite   string
}

func (m Migration) query(driver string) string {
	if driver == config.DriverPostgres {
		return m.Postgres
	}
	return m.SQLite
}

var migrations = []Migration{
	{
		Version: "001_episode_catalog",
		Postgres: `
			-- Episodes: one row per ingested clip; id order is insertion order
			CREATE TABLE IF NOT EXISTS episodes (
				id BIGSERIAL PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				genre VARCHAR(32) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				media_path TEXT NOT NULL,
				thumbnail_path TEXT NOT NULL DEFAULT '',
				duration_seconds INTEGER NOT NULL,
				media_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
				CONSTRAINT episodes_genre_check CHECK (genre IN ('Drama', 'Comedy', 'Telenovela', 'Animation')),
				CONSTRAINT episodes_duration_check CHECK (duration_seconds BETWEEN 60 AND 120)
			);

			CREATE INDEX IF NOT EXISTS idx_episodes_title ON episodes(title);
		`,
		SQLite: `
			CREATE TABLE IF NOT EXISTS episodes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				genre TEXT NOT NULL CHECK (genre IN ('Drama', 'Comedy', 'Telenovela', 'Animation')),
				description TEXT NOT NULL DEFAULT '',
				media_path TEXT NOT NULL,
				thumbnail_path TEXT NOT NULL DEFAULT '',
				duration_seconds INTEGER NOT NULL CHECK (duration_seconds BETWEEN 60 AND 120),
				media_seconds REAL NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_episodes_title ON episodes(title);
		`,
	},
}

// RunMigrations applies every pending schema migration in order
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	logger := logging.WithComponent("migrations")
	logger.Info().Msg("📄 running episode catalog migrations")

	createTable := `
		CREATE TABLE IF NOT EXISTS migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`
	if db.DriverName() == config.DriverSQLite {
		createTable = `
			CREATE TABLE IF NOT EXISTS migrations (
				version TEXT PRIMARY KEY,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range migrations {
		if err := applyMigration(ctx, db, migration); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
	}

	logger.Info().Msg("✅ episode catalog migrations completed")
	return nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, migration Migration) error {
	logger := logging.WithComponent("migrations").With().Str("version", migration.Version).Logger()

	// Check if migration already applied
	var count int
	err := db.GetContext(ctx, &count, db.Rebind("SELECT COUNT(*) FROM migrations WHERE version = ?"), migration.Version)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	if count > 0 {
		logger.Debug().Msg("⏭️  migration already applied, skipping")
		return nil
	}

	logger.Info().Msg("🔧 applying migration")

	return Transaction(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.query(db.DriverName())); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO migrations (version) VALUES (?)"), migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
		return nil
	})
}
