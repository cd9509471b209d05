package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/journal"
)

// Append records one audit entry, setting its ID.
func (s *SQLite) Append(ctx context.Context, e *journal.Entry) error {
	query := `
		INSERT INTO audit_log (batch_id, command_text, summary, outcome, succeeded, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, query,
		e.BatchID,
		e.CommandText,
		e.Summary,
		string(e.Outcome),
		e.Succeeded,
		e.Failed,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	e.ID = id

	return nil
}

// List returns the most recent audit entries, newest first.
func (s *SQLite) List(ctx context.Context, limit int) ([]*journal.Entry, error) {
	query := `
		SELECT id, batch_id, command_text, summary, outcome, succeeded, failed, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*journal.Entry
	for rows.Next() {
		var (
			e         journal.Entry
			outcome   string
			summary   sql.NullString
			createdAt string
		)
		err := rows.Scan(&e.ID, &e.BatchID, &e.CommandText, &summary, &outcome,
			&e.Succeeded, &e.Failed, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Summary = summary.String
		e.Outcome = journal.Outcome(outcome)
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing audit created at: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}

	return entries, nil
}

// Clear removes all audit entries.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM audit_log`); err != nil {
		return fmt.Errorf("clearing audit log: %w", err)
	}
	return nil
}
