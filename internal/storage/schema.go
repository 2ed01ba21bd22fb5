package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// migrate creates the schema on a new database and upgrades older ones.
func (db *DB) migrate() error {
	ctx := context.Background()
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
			return fmt.Errorf("failed to create schema_version table: %w", err)
		}

		var version int
		err := tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
		switch {
		case err == sql.ErrNoRows:
			version = 0
		case err != nil:
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		if version == currentSchemaVersion {
			db.logger.Debug("database schema is up to date", "version", version)
			return nil
		}
		if version > currentSchemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
		}

		if version < 1 {
			if err := createV1(tx); err != nil {
				return err
			}
		}

		if version == 0 {
			_, err = tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
		} else {
			_, err = tx.Exec(`UPDATE schema_version SET version = ?`, currentSchemaVersion)
		}
		if err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
		db.logger.Info("database schema initialized", "path", db.path, "version", currentSchemaVersion)
		return nil
	})
}

func createV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			question_id  TEXT,
			tool_id      TEXT NOT NULL,
			project_path TEXT NOT NULL,
			params       TEXT NOT NULL,
			status       TEXT NOT NULL,
			error_kind   TEXT,
			error_msg    TEXT,
			payload      TEXT,
			started_at   TEXT NOT NULL,
			elapsed_ms   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_tool ON runs(tool_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id            TEXT PRIMARY KEY,
			question      TEXT NOT NULL,
			project_path  TEXT NOT NULL,
			matched_tools TEXT NOT NULL,
			fallback      INTEGER NOT NULL,
			answer        TEXT NOT NULL,
			answer_source TEXT NOT NULL,
			asked_at      TEXT NOT NULL,
			elapsed_ms    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_asked ON questions(asked_at)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
