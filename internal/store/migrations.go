package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 2

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	// Create the schema_version table if it does not exist.
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	if version < 2 {
		if err := db.migrateV2(); err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the session, metrics and message tables.
//
// session_metrics.session_ref and raw_messages.session_ref point at
// sessions.id without a FOREIGN KEY clause: rows whose parent was removed
// must stay representable so the quality audit can find them.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id                  TEXT PRIMARY KEY,
			session_id          TEXT NOT NULL,
			project_name        TEXT,
			started_at          TEXT NOT NULL,
			ended_at            TEXT,
			duration_seconds    REAL,
			total_cost_usd      REAL NOT NULL DEFAULT 0,
			total_input_tokens  INTEGER NOT NULL DEFAULT 0,
			total_output_tokens INTEGER NOT NULL DEFAULT 0,
			model_name          TEXT,
			tools_used          TEXT NOT NULL DEFAULT '[]',
			cache_hit_count     INTEGER NOT NULL DEFAULT 0,
			cache_miss_count    INTEGER NOT NULL DEFAULT 0,
			created_at          TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS session_metrics (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			session_ref   TEXT NOT NULL,
			date_bucket   TEXT NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			input_tokens  INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS raw_messages (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_ref TEXT NOT NULL,
			role        TEXT NOT NULL,
			content     TEXT,
			created_at  TEXT NOT NULL
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_name)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_model ON sessions(model_name)`,
		`CREATE INDEX IF NOT EXISTS idx_session_metrics_ref ON session_metrics(session_ref)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_messages_ref ON raw_messages(session_ref)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	// Set schema version.
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", 1); err != nil {
		return err
	}

	return tx.Commit()
}

// migrateV2 widens second-precision timestamps to the nine-digit fraction
// layout so old and new rows compare correctly as strings.
func (db *DB) migrateV2() error {
	columns := []struct{ table, column string }{
		{"sessions", "started_at"},
		{"sessions", "ended_at"},
		{"sessions", "created_at"},
		{"raw_messages", "created_at"},
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range columns {
		stmt := fmt.Sprintf(
			`UPDATE %[1]s SET %[2]s = substr(%[2]s, 1, 19) || '.000000000Z' WHERE length(%[2]s) = 20 AND %[2]s LIKE '%%Z'`,
			c.table, c.column)
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("widening %s.%s: %w", c.table, c.column, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
