package database

import (
	"database/sql"
	"fmt"
)

// Migrate creates the shares and access_logs tables if they do not exist.
// Timestamps are stored as text so that rows written by other tooling
// (possibly without a zone offset) can still be read back; see ParseTimestamp.
func Migrate(db *sql.DB, driver string) error {
	logsPK := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == DriverPostgres {
		logsPK = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS shares (
			id            TEXT PRIMARY KEY,
			file_path     TEXT NOT NULL,
			original_name TEXT NOT NULL,
			expires_at    TEXT NOT NULL,
			max_views     INTEGER NOT NULL,
			current_views INTEGER NOT NULL DEFAULT 0,
			user_id       TEXT,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			CHECK (max_views > 0),
			CHECK (current_views >= 0 AND current_views <= max_views)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS access_logs (
			id          %s,
			file_id     TEXT NOT NULL,
			filename    TEXT NOT NULL DEFAULT '',
			ip_address  TEXT NOT NULL DEFAULT '',
			user_agent  TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			accessed_at TEXT NOT NULL
		)`, logsPK),
		`CREATE INDEX IF NOT EXISTS idx_access_logs_file_id ON access_logs (file_id)`,
		`CREATE INDEX IF NOT EXISTS idx_access_logs_accessed_at ON access_logs (accessed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_user_id ON shares (user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
