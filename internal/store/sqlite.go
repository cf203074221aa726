package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

// SQLite implements OrderStore and ConversationStore on a single database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database and runs migrations.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// WAL for concurrent reads while handlers write
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: wal: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS work_orders (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id     TEXT NOT NULL DEFAULT '',
			applicant   TEXT NOT NULL DEFAULT '',
			operator    TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'open',
			classify    TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			deadline    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS conversations (
			user_id    TEXT PRIMARY KEY,
			model      TEXT NOT NULL DEFAULT '',
			prompt     TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_orders_chat ON work_orders(chat_id);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON work_orders(status);
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Timestamps are persisted as RFC3339 UTC so lexicographic comparison in SQL
// matches chronological order.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// checkAffected maps a zero-row UPDATE to ErrNotFound.
func checkAffected(res sql.Result, what string, key any) error {
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: %s %v: %w", what, key, ErrNotFound)
	}
	return nil
}

var (
	_ OrderStore        = (*SQLite)(nil)
	_ ConversationStore = (*SQLite)(nil)
)

// statusOrDefault keeps the zero value usable for inserts.
func statusOrDefault(st protocol.OrderStatus) protocol.OrderStatus {
	if st == "" {
		return protocol.OrderOpen
	}
	return st
}
