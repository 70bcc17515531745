// Package history keeps an append-only SQLite ledger of finished builds.
// It complements the in-process statistics map, which is reset on
// restart.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one finished build.
type Record struct {
	BuildID        string        `json:"build_id"`
	ToolType       string        `json:"tool_type"`
	Operation      string        `json:"operation"`
	Success        bool          `json:"success"`
	FilesProcessed int           `json:"files_processed"`
	ItemsIndexed   int           `json:"items_indexed"`
	IndexSizeBytes int64         `json:"index_size_bytes"`
	ErrorsCount    int           `json:"errors_count"`
	WarningsCount  int           `json:"warnings_count"`
	Duration       time.Duration `json:"duration"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Store is a SQLite-backed build ledger.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	closed bool
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS build_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		tool_type TEXT NOT NULL,
		operation TEXT NOT NULL,
		success INTEGER NOT NULL,
		files_processed INTEGER NOT NULL DEFAULT 0,
		items_indexed INTEGER NOT NULL DEFAULT 0,
		index_size_bytes INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0,
		warnings_count INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_build_history_tool ON build_history(tool_type, id DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Append inserts r.
func (s *Store) Append(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("history store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO build_history (
			build_id, tool_type, operation, success,
			files_processed, items_indexed, index_size_bytes,
			errors_count, warnings_count, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.BuildID, r.ToolType, r.Operation, boolToInt(r.Success),
		r.FilesProcessed, r.ItemsIndexed, r.IndexSizeBytes,
		r.ErrorsCount, r.WarningsCount, r.Duration.Milliseconds(),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	return s.query(ctx, `
		SELECT build_id, tool_type, operation, success,
			files_processed, items_indexed, index_size_bytes,
			errors_count, warnings_count, duration_ms, created_at
		FROM build_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
}

// ForTool returns up to limit records for tool, newest first.
func (s *Store) ForTool(ctx context.Context, tool string, limit int) ([]Record, error) {
	return s.query(ctx, `
		SELECT build_id, tool_type, operation, success,
			files_processed, items_indexed, index_size_bytes,
			errors_count, warnings_count, duration_ms, created_at
		FROM build_history
		WHERE tool_type = ?
		ORDER BY id DESC
		LIMIT ?
	`, tool, limit)
}

// LatestSuccess returns the newest successful record for tool.
func (s *Store) LatestSuccess(ctx context.Context, tool string) (*Record, bool, error) {
	records, err := s.query(ctx, `
		SELECT build_id, tool_type, operation, success,
			files_processed, items_indexed, index_size_bytes,
			errors_count, warnings_count, duration_ms, created_at
		FROM build_history
		WHERE tool_type = ? AND success = 1
		ORDER BY id DESC
		LIMIT 1
	`, tool)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return &records[0], true, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("history store is closed")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query build history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r          Record
			success    int
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(
			&r.BuildID, &r.ToolType, &r.Operation, &success,
			&r.FilesProcessed, &r.ItemsIndexed, &r.IndexSizeBytes,
			&r.ErrorsCount, &r.WarningsCount, &durationMS, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Success = success != 0
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database. Further calls return an error.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
