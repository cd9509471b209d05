// Package db provides SQLite storage implementation.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/johnh2o2/coparent-sub000/internal/block"
)

// SQLite implements block.Repository and journal.Store using SQLite.
type SQLite struct {
	db *sql.DB
}

// New creates a new SQLite store and runs migrations.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", block.ErrStoreUnavailable)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database at %s: %w", path, block.ErrStoreUnavailable)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Save inserts or replaces a block and returns the stored copy.
func (s *SQLite) Save(ctx context.Context, b *block.TimeBlock) (*block.TimeBlock, error) {
	query := `
		INSERT INTO blocks (
			id, day, start_slot, end_slot, provider, notes,
			recurrence, recurrence_end, created_at, modified_at, modified_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day = excluded.day,
			start_slot = excluded.start_slot,
			end_slot = excluded.end_slot,
			provider = excluded.provider,
			notes = excluded.notes,
			recurrence = excluded.recurrence,
			recurrence_end = excluded.recurrence_end,
			modified_at = excluded.modified_at,
			modified_by = excluded.modified_by
	`

	stored := *b
	stored.ModifiedAt = time.Now()

	var recurrenceEnd any
	if stored.RecurrenceEnd != nil {
		recurrenceEnd = stored.RecurrenceEnd.Format("2006-01-02")
	}

	_, err := s.db.ExecContext(ctx, query,
		stored.ID,
		stored.Day.Format("2006-01-02"),
		stored.StartSlot,
		stored.EndSlot,
		string(stored.Provider),
		stored.Notes,
		string(stored.Recurrence),
		recurrenceEnd,
		stored.CreatedAt.Format(time.RFC3339),
		stored.ModifiedAt.Format(time.RFC3339),
		stored.ModifiedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting block %s: %v: %w", b.ID, err, block.ErrServerError)
	}

	return &stored, nil
}

// Delete removes a block by id. Deleting an absent block returns
// block.ErrNotFound.
func (s *SQLite) Delete(ctx context.Context, b *block.TimeBlock) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, b.ID)
	if err != nil {
		return fmt.Errorf("deleting block %s: %v: %w", b.ID, err, block.ErrServerError)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return block.ErrNotFound
	}

	return nil
}

// BatchSave saves blocks independently, returning the stored subset and
// the last error encountered. It is deliberately not transactional: a
// bad block must not take its siblings down with it.
func (s *SQLite) BatchSave(ctx context.Context, blocks []*block.TimeBlock) ([]*block.TimeBlock, error) {
	var saved []*block.TimeBlock
	var lastErr error
	for _, b := range blocks {
		stored, err := s.Save(ctx, b)
		if err != nil {
			lastErr = err
			continue
		}
		saved = append(saved, stored)
	}
	return saved, lastErr
}

// ListByDateRange returns concrete blocks anchored inside the inclusive
// range plus every recurring template, ordered by day then start slot.
func (s *SQLite) ListByDateRange(ctx context.Context, start, end time.Time) ([]*block.TimeBlock, error) {
	query := `
		SELECT id, day, start_slot, end_slot, provider, notes,
		       recurrence, recurrence_end, created_at, modified_at, modified_by
		FROM blocks
		WHERE (day >= ? AND day <= ?) OR recurrence != 'none'
		ORDER BY day, start_slot
	`

	rows, err := s.db.QueryContext(ctx, query, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %v: %w", err, block.ErrServerError)
	}
	defer func() { _ = rows.Close() }()

	var blocks []*block.TimeBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blocks: %v: %w", err, block.ErrServerError)
	}

	return blocks, nil
}

// Get retrieves a block by id, or nil when absent.
func (s *SQLite) Get(ctx context.Context, id string) (*block.TimeBlock, error) {
	query := `
		SELECT id, day, start_slot, end_slot, provider, notes,
		       recurrence, recurrence_end, created_at, modified_at, modified_by
		FROM blocks
		WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// Close releases database resources.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(row scanner) (*block.TimeBlock, error) {
	var (
		b             block.TimeBlock
		day           string
		provider      string
		recurrence    string
		recurrenceEnd sql.NullString
		notes         sql.NullString
		createdAt     string
		modifiedAt    string
		modifiedBy    sql.NullString
	)

	err := row.Scan(
		&b.ID,
		&day,
		&b.StartSlot,
		&b.EndSlot,
		&provider,
		&notes,
		&recurrence,
		&recurrenceEnd,
		&createdAt,
		&modifiedAt,
		&modifiedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning block: %w", err)
	}

	b.Day, err = parseDate(day)
	if err != nil {
		return nil, fmt.Errorf("parsing block day: %w", err)
	}
	b.Provider = block.Provider(provider)
	b.Recurrence = block.Recurrence(recurrence)
	b.Notes = notes.String
	b.ModifiedBy = modifiedBy.String

	if recurrenceEnd.Valid {
		end, err := parseDate(recurrenceEnd.String)
		if err != nil {
			return nil, fmt.Errorf("parsing recurrence end: %w", err)
		}
		b.RecurrenceEnd = &end
	}

	b.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created at: %w", err)
	}
	b.ModifiedAt, err = time.Parse(time.RFC3339, modifiedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing modified at: %w", err)
	}

	return &b, nil
}

// parseDate parses a date string in various formats SQLite might return.
// Date-only values are parsed in local timezone to match time.Now() behavior.
func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}

	// SQLite returns DATE columns as "2006-01-02T00:00:00Z" - extract date and parse as local
	if len(s) == 20 && s[10] == 'T' && s[19] == 'Z' {
		if t, err := time.ParseInLocation("2006-01-02", s[:10], time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}
