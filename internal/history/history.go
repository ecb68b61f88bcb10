// Package history keeps an SQLite audit log of processed instructions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/pagebot/internal/command"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS instructions (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	instruction TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	applied     INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_instructions_created ON instructions(created_at);
`

// Limits for Recent.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Sources of an instruction.
const (
	SourceAPI      = "api"
	SourceWhatsApp = "whatsapp"
	SourceMCP      = "mcp"
)

// Entry is one processed instruction.
type Entry struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Instruction string         `json:"instruction"`
	Action      command.Action `json:"action"`
	Message     string         `json:"message"`
	Applied     bool           `json:"applied"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Recorder is the write side used by the pipeline.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// DB wraps a sql.DB holding the audit log.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record inserts e, assigning an ID and timestamp when absent.
func (db *DB) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO instructions (id, source, instruction, action, message, applied, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Source, e.Instruction, string(e.Action), e.Message, e.Applied, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, source, instruction, action, message, applied, created_at
		FROM instructions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.Source, &e.Instruction, &action, &e.Message, &e.Applied, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = command.Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
