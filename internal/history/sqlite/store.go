// Package sqlite provides the optional long-term history archive. The
// in-memory ring keeps the 50 most recent entries; the archive retains
// everything it is handed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/history"
)

// Store implements history.Archiver on a SQLite database.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// New opens (creating if needed) the archive database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// NewInMemory creates an in-memory archive, useful for testing.
func NewInMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS archive (
			id TEXT PRIMARY KEY,
			completed_at DATETIME NOT NULL,
			request_name TEXT,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			resolved_url TEXT NOT NULL,
			definition TEXT,
			sent_headers TEXT,
			sent_body TEXT,
			environment TEXT,
			response_status INTEGER NOT NULL,
			response_status_text TEXT,
			response_headers TEXT,
			response_body TEXT,
			response_time INTEGER,
			response_size INTEGER,
			tests_passed INTEGER DEFAULT 0,
			tests_failed INTEGER DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_archive_completed ON archive(completed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_archive_method ON archive(method);
		CREATE INDEX IF NOT EXISTS idx_archive_status ON archive(response_status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// definitionBlob carries the editable snapshot columns that do not merit
// their own schema fields.
type definitionBlob struct {
	Headers  []core.Header    `json:"headers,omitempty"`
	Params   []core.Param     `json:"params,omitempty"`
	Body     string           `json:"body,omitempty"`
	BodyType core.BodyType    `json:"bodyType,omitempty"`
	Auth     *core.AuthConfig `json:"auth,omitempty"`
}

// Archive stores one entry. Satisfies history.Archiver.
func (s *Store) Archive(ctx context.Context, e history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("archive store is closed")
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	defJSON, _ := json.Marshal(definitionBlob{
		Headers:  e.Headers,
		Params:   e.Params,
		Body:     e.Body,
		BodyType: e.BodyType,
		Auth:     e.Auth,
	})
	sentHeadersJSON, _ := json.Marshal(e.SentHeaders)
	respHeadersJSON, _ := json.Marshal(e.Response.Headers)

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO archive (
			id, completed_at, request_name, method, url, resolved_url,
			definition, sent_headers, sent_body, environment,
			response_status, response_status_text, response_headers,
			response_body, response_time, response_size,
			tests_passed, tests_failed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.CompletedAt, e.RequestName, e.Method, e.URL, e.ResolvedURL,
		string(defJSON), string(sentHeadersJSON), e.SentBody, e.Environment,
		e.Response.Status, e.Response.StatusText, string(respHeadersJSON),
		e.Response.Body, e.Response.ResponseTime, e.Response.Size,
		e.TestsPassed, e.TestsFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert archive entry: %w", err)
	}

	return nil
}

// List returns up to limit archived entries, newest first. A limit of 0
// means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("archive store is closed")
	}

	query := `
		SELECT id, completed_at, request_name, method, url, resolved_url,
			definition, sent_headers, sent_body, environment,
			response_status, response_status_text, response_headers,
			response_body, response_time, response_size,
			tests_passed, tests_failed
		FROM archive ORDER BY completed_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of archived entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("archive store is closed")
	}

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archive").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count archive: %w", err)
	}
	return count, nil
}

// Clear removes all archived entries.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("archive store is closed")
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM archive"); err != nil {
		return fmt.Errorf("failed to clear archive: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func scanEntry(rows *sql.Rows) (history.Entry, error) {
	var e history.Entry
	var defJSON, sentHeadersJSON, respHeadersJSON string

	err := rows.Scan(
		&e.ID, &e.CompletedAt, &e.RequestName, &e.Method, &e.URL, &e.ResolvedURL,
		&defJSON, &sentHeadersJSON, &e.SentBody, &e.Environment,
		&e.Response.Status, &e.Response.StatusText, &respHeadersJSON,
		&e.Response.Body, &e.Response.ResponseTime, &e.Response.Size,
		&e.TestsPassed, &e.TestsFailed,
	)
	if err != nil {
		return history.Entry{}, fmt.Errorf("failed to scan archive entry: %w", err)
	}

	var def definitionBlob
	if defJSON != "" {
		if err := json.Unmarshal([]byte(defJSON), &def); err == nil {
			e.Headers = def.Headers
			e.Params = def.Params
			e.Body = def.Body
			e.BodyType = def.BodyType
			e.Auth = def.Auth
		}
	}
	if sentHeadersJSON != "" && sentHeadersJSON != "null" {
		_ = json.Unmarshal([]byte(sentHeadersJSON), &e.SentHeaders)
	}
	if respHeadersJSON != "" && respHeadersJSON != "null" {
		_ = json.Unmarshal([]byte(respHeadersJSON), &e.Response.Headers)
	}

	return e, nil
}

var _ history.Archiver = (*Store)(nil)
