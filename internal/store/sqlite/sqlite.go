// Package sqlite mirrors the chat log into a shared table, standing in
// for the hosted table the browser build points at.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yuichat/yuichat/internal/chat"
)

// Store implements store.Mirror on SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	id      TEXT    NOT NULL,
	name    TEXT    NOT NULL,
	color   TEXT    NOT NULL,
	message TEXT    NOT NULL,
	time    INTEGER NOT NULL,
	system  INTEGER NOT NULL DEFAULT 0,
	email   TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_chats_time ON chats(time DESC);
`

// New opens (and creates, if needed) the mirror at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts one entry.
func (s *Store) Append(ctx context.Context, e chat.Entry) error {
	query := `
		INSERT INTO chats (id, name, color, message, time, system, email)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, e.ID, e.Name, e.Color, e.Message, e.Time, e.System, e.Email); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

// Latest returns the newest chat.MaxLog entries ordered by time descending.
func (s *Store) Latest(ctx context.Context) ([]chat.Entry, error) {
	query := `
		SELECT id, name, color, message, time, system, email
		FROM chats
		ORDER BY time DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, chat.MaxLog)
	if err != nil {
		return nil, fmt.Errorf("select chats: %w", err)
	}
	defer rows.Close()

	var entries []chat.Entry
	for rows.Next() {
		var e chat.Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Color, &e.Message, &e.Time, &e.System, &e.Email); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return entries, nil
}

// Clear deletes every mirrored entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats`); err != nil {
		return fmt.Errorf("delete chats: %w", err)
	}
	return nil
}

// Subscribe polls for rows inserted after the newest one seen and hands
// each to fn, until ctx is done. SQLite has no change feed, so polling
// stands in for the hosted table's INSERT subscription.
func (s *Store) Subscribe(ctx context.Context, interval time.Duration, fn func(chat.Entry)) error {
	var last int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM chats`).Scan(&last); err != nil {
		return fmt.Errorf("read mirror position: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			next, err := s.emitSince(ctx, last, fn)
			if err != nil {
				return err
			}
			last = next
		}
	}
}

func (s *Store) emitSince(ctx context.Context, last int64, fn func(chat.Entry)) (int64, error) {
	query := `
		SELECT seq, id, name, color, message, time, system, email
		FROM chats
		WHERE seq > ?
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, last)
	if err != nil {
		return last, fmt.Errorf("poll chats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq int64
			e   chat.Entry
		)
		if err := rows.Scan(&seq, &e.ID, &e.Name, &e.Color, &e.Message, &e.Time, &e.System, &e.Email); err != nil {
			return last, fmt.Errorf("scan chat: %w", err)
		}
		fn(e)
		last = seq
	}
	if err := rows.Err(); err != nil {
		return last, fmt.Errorf("iterate chats: %w", err)
	}
	return last, nil
}
