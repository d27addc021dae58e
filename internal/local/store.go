// Package local implements the durable local mirror of the entity
// collections: one named slot per collection, each holding a JSON array.
// It is the sole source of truth while offline and a best-effort mirror
// otherwise, so its operations never fail from the caller's point of view;
// storage errors are logged and swallowed at this boundary.
package local

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open opens the backing SQLite database under dataDir, creating the
// directory and schema as needed. WAL mode keeps reads cheap while a
// write is in flight.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "studytrack.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			doc  TEXT NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create collections table: %w", err)
	}

	return &Store{db: db}, nil
}

// GetCollection unmarshals the named collection into out, which must be a
// pointer to a slice. A missing collection leaves out untouched.
func (s *Store) GetCollection(name string, out interface{}) {
	var doc string
	err := s.db.QueryRow("SELECT doc FROM collections WHERE name = ?", name).Scan(&doc)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("local store: read %s: %v", name, err)
		return
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		log.Printf("local store: decode %s: %v", name, err)
	}
}

// SetCollection replaces the named collection with v, serialized as JSON.
func (s *Store) SetCollection(name string, v interface{}) {
	doc, err := json.Marshal(v)
	if err != nil {
		log.Printf("local store: encode %s: %v", name, err)
		return
	}
	if _, err := s.db.Exec(`
		INSERT INTO collections (name, doc) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET doc = excluded.doc
	`, name, string(doc)); err != nil {
		log.Printf("local store: write %s: %v", name, err)
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
