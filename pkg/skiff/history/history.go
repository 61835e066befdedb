// Package history persists one record per agent run in a local SQLite
// database so past runs can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// Run is one completed (or aborted) agent run.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	Query            string
	TerminateReason  string
	FinalResult      string
	Turns            int
	PromptTokens     int
	CompletionTokens int
}

// Store wraps the SQLite database holding run records.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// DefaultPath returns ~/.skiff/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".skiff", "history.db"), nil
}

// Open opens or creates the store at dbPath, migrating the schema.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db, logger: logger.With("component", "history")}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id                TEXT PRIMARY KEY,
			started_at        DATETIME NOT NULL,
			finished_at       DATETIME NOT NULL,
			query             TEXT NOT NULL,
			terminate_reason  TEXT NOT NULL,
			final_result      TEXT NOT NULL,
			turns             INTEGER NOT NULL,
			prompt_tokens     INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Record inserts one run. A missing ID gets a fresh UUID.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, query, terminate_reason,
			final_result, turns, prompt_tokens, completion_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Query,
		run.TerminateReason, run.FinalResult, run.Turns,
		run.PromptTokens, run.CompletionTokens)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	s.logger.Debug("run recorded", "id", run.ID, "reason", run.TerminateReason)
	return run.ID, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, query, terminate_reason,
			final_result, turns, prompt_tokens, completion_tokens
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Query,
			&r.TerminateReason, &r.FinalResult, &r.Turns,
			&r.PromptTokens, &r.CompletionTokens); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get fetches one run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, query, terminate_reason,
			final_result, turns, prompt_tokens, completion_tokens
		FROM runs WHERE id = ?`, id)
	var r Run
	if err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Query,
		&r.TerminateReason, &r.FinalResult, &r.Turns,
		&r.PromptTokens, &r.CompletionTokens); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, fmt.Errorf("loading run: %w", err)
	}
	return &r, nil
}
