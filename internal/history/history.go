// Package history persists a log of tool invocations to SQLite so long
// simulation workflows can be audited after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Invocation is one recorded tool run.
type Invocation struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	CommandName string    `json:"command_name"`
	Argv        []string  `json:"argv"`
	ExitCode    int       `json:"exit_code"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// Store is a SQLite-backed invocation log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the invocation log at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: initializing tables: %w", err)
	}
	return s, nil
}

func (s *Store) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		command_name TEXT NOT NULL,
		argv TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		error_message TEXT,
		started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool);
	CREATE INDEX IF NOT EXISTS idx_invocations_started_at ON invocations(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one invocation to the log.
func (s *Store) Record(ctx context.Context, inv Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.StartedAt.IsZero() {
		inv.StartedAt = time.Now()
	}

	argvJSON, err := json.Marshal(inv.Argv)
	if err != nil {
		return fmt.Errorf("history: marshaling argv: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations (id, tool, command_name, argv, exit_code, duration_ms, error_message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.Tool, inv.CommandName, string(argvJSON), inv.ExitCode, inv.DurationMs, inv.Error, inv.StartedAt)
	if err != nil {
		return fmt.Errorf("history: inserting invocation: %w", err)
	}
	return nil
}

// Recent returns the most recent invocations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool, command_name, argv, exit_code, duration_ms, error_message, started_at
		FROM invocations
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying invocations: %w", err)
	}
	defer rows.Close()

	var invocations []Invocation
	for rows.Next() {
		var inv Invocation
		var argvJSON string
		var errMsg sql.NullString

		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.CommandName, &argvJSON, &inv.ExitCode, &inv.DurationMs, &errMsg, &inv.StartedAt); err != nil {
			return nil, fmt.Errorf("history: scanning invocation: %w", err)
		}
		if err := json.Unmarshal([]byte(argvJSON), &inv.Argv); err != nil {
			return nil, fmt.Errorf("history: unmarshaling argv: %w", err)
		}
		inv.Error = errMsg.String
		invocations = append(invocations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows iteration: %w", err)
	}
	return invocations, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
