package db

import "fmt"

// migrate runs database migrations.
func (s *SQLite) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS blocks (
			id             TEXT PRIMARY KEY,
			day            DATE NOT NULL,
			start_slot     INTEGER NOT NULL CHECK(start_slot >= 0 AND start_slot < 96),
			end_slot       INTEGER NOT NULL CHECK(end_slot >= 0 AND end_slot <= 96),
			provider       TEXT NOT NULL CHECK(provider IN ('mom', 'dad', 'nanny', 'grandparent', 'none')),
			notes          TEXT,
			recurrence     TEXT DEFAULT 'none' CHECK(recurrence IN ('none', 'daily', 'weekly', 'monthly', 'yearly')),
			recurrence_end DATE,
			created_at     DATETIME NOT NULL,
			modified_at    DATETIME NOT NULL,
			modified_by    TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_blocks_day ON blocks(day);
		CREATE INDEX IF NOT EXISTS idx_blocks_recurrence ON blocks(recurrence);

		CREATE TABLE IF NOT EXISTS audit_log (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id     TEXT NOT NULL,
			command_text TEXT NOT NULL,
			summary      TEXT,
			outcome      TEXT NOT NULL CHECK(outcome IN ('applied', 'partial', 'failed')),
			succeeded    INTEGER NOT NULL DEFAULT 0,
			failed       INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	return nil
}
