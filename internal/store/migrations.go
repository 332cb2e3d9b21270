package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "items: per-item scheduling state",
		SQL: `
CREATE TABLE items (
    id             TEXT NOT NULL,
    user_id        TEXT NOT NULL,
    state          TEXT NOT NULL CHECK (state IN ('new', 'learning', 'review', 'relearning')),
    stability      REAL NOT NULL DEFAULT 1.0,
    difficulty     REAL NOT NULL DEFAULT 0.3,
    reps           INTEGER NOT NULL DEFAULT 0,
    lapses         INTEGER NOT NULL DEFAULT 0,
    last_review    INTEGER,
    scheduled_days REAL,
    next_review    INTEGER,
    superseded     INTEGER NOT NULL DEFAULT 0,

    -- Bumped on every scheduling update; stale writers lose.
    rev            INTEGER NOT NULL DEFAULT 0,

    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL,

    PRIMARY KEY (id, user_id)
);

CREATE INDEX idx_items_due   ON items(user_id, next_review);
CREATE INDEX idx_items_state ON items(user_id, state);
`,
	},
	{
		Version:     2,
		Description: "review_log: append-only review history",
		SQL: `
CREATE TABLE review_log (
    id                INTEGER PRIMARY KEY,
    item_id           TEXT NOT NULL,
    user_id           TEXT NOT NULL,
    rating            INTEGER NOT NULL,
    state_before      TEXT NOT NULL,
    stability_before  REAL NOT NULL,
    stability_after   REAL NOT NULL,
    difficulty_before REAL NOT NULL,
    difficulty_after  REAL NOT NULL,
    retrievability    REAL NOT NULL,
    elapsed_days      REAL NOT NULL,
    scheduled_days    REAL NOT NULL,
    duration_ms       INTEGER,
    created_at        INTEGER NOT NULL
);

CREATE INDEX idx_reviews_user ON review_log(user_id, created_at DESC);
CREATE INDEX idx_reviews_item ON review_log(item_id);
`,
	},
	{
		Version:     3,
		Description: "scheduler_params: per-user FSRS weights and knobs",
		SQL: `
CREATE TABLE scheduler_params (
    user_id           TEXT PRIMARY KEY,
    weights           TEXT NOT NULL,
    request_retention REAL NOT NULL,
    maximum_interval  INTEGER NOT NULL,
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
