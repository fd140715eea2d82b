// Package depcache persists probed field dependencies per dataset so repeated
// analyses of the same dataset can skip the probing pass.
package depcache

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/gridfire-labs/fieldkit/internal/field"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotCached is returned when a field has no cached entry.
var ErrNotCached = errors.New("field not cached")

// Entry is a cached dependency record for one field.
type Entry struct {
	Key        field.Key
	Fields     []field.Key
	Parameters []string
	AnalyzedAt time.Time
}

// Session groups the entries written by one analysis pass.
type Session struct {
	ID        string
	Dataset   string
	CreatedAt time.Time
}

// Store is a SQLite-backed dependency cache.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates an unopened store.
func NewStore() *Store {
	return &Store{}
}

// Open opens the cache database. Use ":memory:" for an in-memory cache.
func (s *Store) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping cache database: %w", err)
	}
	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema creates the cache tables if they do not exist.
func (s *Store) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("cache database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// BeginSession records the start of an analysis pass over a dataset.
func (s *Store) BeginSession(dataset string) (*Session, error) {
	if s.db == nil {
		return nil, fmt.Errorf("cache database not opened")
	}

	sess := &Session{
		ID:        uuid.New().String(),
		Dataset:   dataset,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, dataset, created_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Dataset, sess.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Put stores a field's dependencies, replacing any previous entry in one
// transaction.
func (s *Store) Put(sessionID, dataset string, entry Entry) error {
	if s.db == nil {
		return fmt.Errorf("cache database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	name := entry.Key.String()
	for _, table := range []string{"fields", "field_deps", "field_params"} {
		if _, err := tx.Exec(
			fmt.Sprintf("DELETE FROM %s WHERE dataset = ? AND field = ?", table),
			dataset, name,
		); err != nil {
			return fmt.Errorf("failed to clear existing entry: %w", err)
		}
	}

	analyzedAt := entry.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now().UTC()
	}
	if _, err := tx.Exec(
		`INSERT INTO fields (dataset, field, session_id, analyzed_at) VALUES (?, ?, ?, ?)`,
		dataset, name, sessionID, analyzedAt,
	); err != nil {
		return fmt.Errorf("failed to insert field entry: %w", err)
	}

	for i, dep := range entry.Fields {
		if _, err := tx.Exec(
			`INSERT INTO field_deps (dataset, field, position, dep) VALUES (?, ?, ?, ?)`,
			dataset, name, i, dep.String(),
		); err != nil {
			return fmt.Errorf("failed to insert dependency: %w", err)
		}
	}
	for i, param := range entry.Parameters {
		if _, err := tx.Exec(
			`INSERT INTO field_params (dataset, field, position, param) VALUES (?, ?, ?, ?)`,
			dataset, name, i, param,
		); err != nil {
			return fmt.Errorf("failed to insert parameter: %w", err)
		}
	}

	return tx.Commit()
}

// Get loads a field's cached dependencies. Returns ErrNotCached when the
// field has no entry for the dataset.
func (s *Store) Get(dataset string, key field.Key) (*Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("cache database not opened")
	}

	name := key.String()
	entry := &Entry{Key: key}

	err := s.db.QueryRow(
		`SELECT analyzed_at FROM fields WHERE dataset = ? AND field = ?`,
		dataset, name,
	).Scan(&entry.AnalyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s in dataset %s: %w", name, dataset, ErrNotCached)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load field entry: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT dep FROM field_deps WHERE dataset = ? AND field = ? ORDER BY position`,
		dataset, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependencies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		entry.Fields = append(entry.Fields, field.ParseKey(dep))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dependencies: %w", err)
	}

	prows, err := s.db.Query(
		`SELECT param FROM field_params WHERE dataset = ? AND field = ? ORDER BY position`,
		dataset, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var param string
		if err := prows.Scan(&param); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		entry.Parameters = append(entry.Parameters, param)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}

	return entry, nil
}

// Fields lists the cached fields for a dataset, sorted by name.
func (s *Store) Fields(dataset string) ([]field.Key, error) {
	if s.db == nil {
		return nil, fmt.Errorf("cache database not opened")
	}

	rows, err := s.db.Query(
		`SELECT field FROM fields WHERE dataset = ? ORDER BY field`, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	var keys []field.Key
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		keys = append(keys, field.ParseKey(name))
	}
	return keys, rows.Err()
}

// Purge removes all cached entries for a dataset.
func (s *Store) Purge(dataset string) error {
	if s.db == nil {
		return fmt.Errorf("cache database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"field_deps", "field_params", "fields", "sessions"} {
		if _, err := tx.Exec(
			fmt.Sprintf("DELETE FROM %s WHERE dataset = ?", table), dataset,
		); err != nil {
			return fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}
	return tx.Commit()
}
