// Package storage provides a SQLite ledger of completed LLM requests.
//
// Information Hiding:
// - SQLite connection management hidden behind SqliteStorage
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/richinex/gemway/metadata"
	"github.com/richinex/gemway/tokens"
)

// Operation names stored with each record.
const (
	OpChat       = "chat"
	OpStream     = "stream"
	OpEmbeddings = "embeddings"
)

var (
	// ErrUnfinished is returned when saving a record Finish has not completed.
	ErrUnfinished = errors.New("metadata record is not finished")

	// ErrDuplicateRequest is returned when a request ID is already stored.
	ErrDuplicateRequest = errors.New("request already recorded")
)

// Entry is a stored request.
type Entry struct {
	Operation string          `json:"operation"`
	Record    metadata.Record `json:"record"`
}

// Summary aggregates stored requests.
type Summary struct {
	Requests int          `json:"requests"`
	Usage    tokens.Usage `json:"usage"`
}

// SqliteStorage records finished metadata records in a SQLite database file.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	// Create parent directory if needed
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS requests (
			request_id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			extra TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_requests_started
		ON requests(started_at DESC);

		CREATE INDEX IF NOT EXISTS idx_requests_provider
		ON requests(provider, started_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores a finished record under the given operation name.
func (s *SqliteStorage) Save(ctx context.Context, operation string, rec metadata.Record) error {
	if !rec.Finished() || rec.LatencyMs == nil {
		return ErrUnfinished
	}

	var usage tokens.Usage
	if rec.TokenUsage != nil {
		usage = *rec.TokenUsage
	}

	var extra sql.NullString
	if len(rec.Extra) > 0 {
		data, err := json.Marshal(rec.Extra)
		if err != nil {
			return fmt.Errorf("failed to encode extra metadata: %w", err)
		}
		extra = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (request_id, operation, provider, model, started_at, finished_at,
			latency_ms, input_tokens, output_tokens, total_tokens, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, operation, rec.Provider, rec.Model,
		rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(), *rec.LatencyMs,
		usage.InputTokens, usage.OutputTokens, usage.TotalTokens, extra,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %s", ErrDuplicateRequest, rec.RequestID)
		}
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

const selectEntry = `
	SELECT request_id, operation, provider, model, started_at, finished_at,
		latency_ms, input_tokens, output_tokens, total_tokens, extra
	FROM requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	var startedAt, finishedAt, latency int64
	var input, output, total int
	var extra sql.NullString

	err := row.Scan(
		&entry.Record.RequestID,
		&entry.Operation,
		&entry.Record.Provider,
		&entry.Record.Model,
		&startedAt,
		&finishedAt,
		&latency,
		&input,
		&output,
		&total,
		&extra,
	)
	if err != nil {
		return Entry{}, err
	}

	finished := time.UnixMilli(finishedAt)
	usage := tokens.NewUsage(input, output)
	entry.Record.StartedAt = time.UnixMilli(startedAt)
	entry.Record.FinishedAt = &finished
	entry.Record.LatencyMs = &latency
	entry.Record.TokenUsage = &usage

	if extra.Valid {
		if err := json.Unmarshal([]byte(extra.String), &entry.Record.Extra); err != nil {
			return Entry{}, fmt.Errorf("invalid extra metadata for %s: %w", entry.Record.RequestID, err)
		}
	}
	return entry, nil
}

// Get returns the entry for a request ID.
// Returns nil, nil if not found.
func (s *SqliteStorage) Get(ctx context.Context, requestID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntry+" WHERE request_id = ?", requestID)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &entry, nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
// An empty provider covers all providers.
func (s *SqliteStorage) List(ctx context.Context, provider string, limit int) ([]Entry, error) {
	query := selectEntry
	var args []any
	if provider != "" {
		query += " WHERE provider = ?"
		args = append(args, provider)
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	return entries, nil
}

// Totals sums usage over stored requests. An empty provider covers all.
func (s *SqliteStorage) Totals(ctx context.Context, provider string) (Summary, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0) FROM requests`
	var args []any
	if provider != "" {
		query += " WHERE provider = ?"
		args = append(args, provider)
	}

	var count, input, output int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count, &input, &output); err != nil {
		return Summary{}, fmt.Errorf("failed to sum usage: %w", err)
	}
	return Summary{Requests: count, Usage: tokens.NewUsage(input, output)}, nil
}

// Delete removes a stored request.
func (s *SqliteStorage) Delete(ctx context.Context, requestID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM requests WHERE request_id = ?", requestID)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return nil
}
