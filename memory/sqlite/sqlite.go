// Package sqlite provides a durable core.MemoryStore backed by a
// SQLite database file. Values are stored as JSON; Increment and
// Remember run inside transactions so their read-modify-write cycles
// are atomic under concurrent callers.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/botmesh-io/botmesh/core"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
);`

// Store is a SQLite-backed memory store. Safe for concurrent use; the
// driver serializes writers and every read-modify-write runs in its
// own transaction.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and initializes
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY between the pool's
	// connections; throughput here is bounded by chat traffic, not I/O.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the value stored under (ns, key).
func (s *Store) Get(ns core.Namespace, key string) (any, bool, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT value FROM memory WHERE namespace = ? AND key = ?`, string(ns), key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, core.NewStorageError("memory get", err)
	}
	v, err := decode(raw)
	if err != nil {
		return nil, false, core.NewStorageError("memory get", err)
	}
	return v, true, nil
}

// Set stores value under (ns, key), overwriting any previous value.
func (s *Store) Set(ns core.Namespace, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return core.NewStorageError("memory set", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO memory (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value`,
		string(ns), key, raw,
	)
	return core.NewStorageError("memory set", err)
}

// Increment atomically adds delta to the counter under (ns, key),
// creating it at zero when absent.
func (s *Store) Increment(ns core.Namespace, key string, delta int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, core.NewStorageError("memory increment", err)
	}
	defer tx.Rollback()

	var current int64
	var raw string
	err = tx.QueryRow(
		`SELECT value FROM memory WHERE namespace = ? AND key = ?`, string(ns), key,
	).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
	case err != nil:
		return 0, core.NewStorageError("memory increment", err)
	default:
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return 0, core.NewStorageError("memory increment", fmt.Errorf("value %q is not a counter: %w", raw, err))
		}
	}

	next := current + delta
	if _, err := tx.Exec(
		`INSERT INTO memory (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value`,
		string(ns), key, fmt.Sprintf("%d", next),
	); err != nil {
		return 0, core.NewStorageError("memory increment", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, core.NewStorageError("memory increment", err)
	}
	return next, nil
}

// Remember returns the stored value for (ns, key) or computes, stores
// and returns the default when absent. The transaction guarantees the
// compute function's result is stored at most once; a compute error
// leaves the key absent.
func (s *Store) Remember(ns core.Namespace, key string, compute func() (any, error)) (any, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, core.NewStorageError("memory remember", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRow(
		`SELECT value FROM memory WHERE namespace = ? AND key = ?`, string(ns), key,
	).Scan(&raw)
	if err == nil {
		v, derr := decode(raw)
		if derr != nil {
			return nil, core.NewStorageError("memory remember", derr)
		}
		return v, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewStorageError("memory remember", err)
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	encoded, err := encode(v)
	if err != nil {
		return nil, core.NewStorageError("memory remember", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO memory (namespace, key, value) VALUES (?, ?, ?)`,
		string(ns), key, encoded,
	); err != nil {
		return nil, core.NewStorageError("memory remember", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, core.NewStorageError("memory remember", err)
	}
	return v, nil
}

func encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(raw), nil
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

var _ core.MemoryStore = (*Store)(nil)
