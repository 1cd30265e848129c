package db

import (
	"context"
	"database/sql"
	"fmt"
)

type Migration struct {
	Version int
	UpSQL   string
	DownSQL string
}

var migrations = []Migration{
	{
		Version: 1,
		UpSQL: `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	category_key TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tiles (
	tile_id TEXT PRIMARY KEY,
	category_key TEXT NOT NULL,
	position INTEGER NOT NULL,
	tile_key TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	icon TEXT NOT NULL DEFAULT '',
	fragment_class TEXT NOT NULL DEFAULT '',
	action_override TEXT NOT NULL DEFAULT '',
	has_intent INTEGER NOT NULL DEFAULT 0,
	intent_action TEXT NOT NULL DEFAULT '',
	component TEXT NOT NULL DEFAULT '',
	extras_json TEXT NOT NULL DEFAULT '{}',
	flags INTEGER NOT NULL DEFAULT 0,
	priority INTEGER NOT NULL DEFAULT 0,
	owning_package TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(category_key, position),
	FOREIGN KEY(category_key) REFERENCES categories(category_key) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS tiles_category_position
ON tiles(category_key, position);

CREATE TABLE IF NOT EXISTS tile_users (
	tile_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	user_handle INTEGER NOT NULL,
	PRIMARY KEY(tile_id, position),
	FOREIGN KEY(tile_id) REFERENCES tiles(tile_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS launches (
	launch_id TEXT PRIMARY KEY,
	component TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS launches_recorded_at
ON launches(recorded_at);
`,
		DownSQL: `
DROP TABLE IF EXISTS launches;
DROP TABLE IF EXISTS tile_users;
DROP TABLE IF EXISTS tiles;
DROP TABLE IF EXISTS categories;
DROP TABLE IF EXISTS schema_migrations;
`,
	},
	{
		Version: 2,
		UpSQL: `
CREATE TABLE IF NOT EXISTS packages (
	package_name TEXT PRIMARY KEY,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	user_handle INTEGER PRIMARY KEY,
	profile_name TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`,
		DownSQL: `
DROP TABLE IF EXISTS profiles;
DROP TABLE IF EXISTS packages;
`,
	},
}

func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.Version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES (?, datetime('now'))`, m.Version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func RollbackAll(ctx context.Context, db *sql.DB) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin rollback tx %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("rollback migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit rollback %d: %w", m.Version, err)
		}
	}
	return nil
}
