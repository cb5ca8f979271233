// Package sqlite provides a durable core.ConversationStore backed by a
// SQLite database file. The context map and message history are stored
// as JSON columns; per-key update serialization is enforced with keyed
// mutexes around each transaction.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/botmesh-io/botmesh/core"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	agent           TEXT NOT NULL,
	user            TEXT NOT NULL,
	room            TEXT NOT NULL,
	context         TEXT NOT NULL,
	history         TEXT NOT NULL,
	message_count   INTEGER NOT NULL,
	last_message_at TIMESTAMP,
	created         TIMESTAMP NOT NULL,
	PRIMARY KEY (agent, user, room)
);`

// Store is a SQLite-backed conversation store.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[core.ConversationKey]*sync.Mutex
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
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, locks: map[core.ConversationKey]*sync.Mutex{}}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// GetOrCreate returns the context for the triple, inserting an empty
// row on first use.
func (s *Store) GetOrCreate(key core.ConversationKey) (*core.ConversationContext, error) {
	unlock := s.lockKey(key)
	defer unlock()

	ctx, err := s.load(key)
	if err != nil {
		return nil, err
	}
	if ctx != nil {
		return ctx, nil
	}

	ctx = core.NewConversationContext(key)
	if err := s.save(ctx, true); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Update applies the mutator to the stored context under the key's
// lock and persists the result.
func (s *Store) Update(key core.ConversationKey, mutate func(*core.ConversationContext)) (*core.ConversationContext, error) {
	unlock := s.lockKey(key)
	defer unlock()

	ctx, err := s.load(key)
	if err != nil {
		return nil, err
	}
	insert := false
	if ctx == nil {
		ctx = core.NewConversationContext(key)
		insert = true
	}
	mutate(ctx)
	if err := s.save(ctx, insert); err != nil {
		return nil, err
	}
	return ctx, nil
}

// AppendMessage pushes msg onto the history and bumps the message
// count and last-message timestamp in the same write.
func (s *Store) AppendMessage(key core.ConversationKey, msg core.Message) error {
	_, err := s.Update(key, func(c *core.ConversationContext) { c.Record(msg) })
	return err
}

// lockKey serializes access to one triple. Different triples proceed
// concurrently up to the driver's write serialization.
func (s *Store) lockKey(key core.ConversationKey) func() {
	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// load reads a row into a context; nil when the triple has no row yet.
func (s *Store) load(key core.ConversationKey) (*core.ConversationContext, error) {
	var (
		contextJSON, historyJSON string
		count                    int
		lastAt                   sql.NullTime
		created                  time.Time
	)
	err := s.db.QueryRow(
		`SELECT context, history, message_count, last_message_at, created
		 FROM conversations WHERE agent = ? AND user = ? AND room = ?`,
		key.Agent, key.User, key.Room,
	).Scan(&contextJSON, &historyJSON, &count, &lastAt, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStorageError("conversation load", err)
	}

	ctx := &core.ConversationContext{Key: key, MessageCount: count, Created: created}
	if lastAt.Valid {
		ctx.LastMessageAt = lastAt.Time
	}
	if err := json.Unmarshal([]byte(contextJSON), &ctx.Context); err != nil {
		return nil, core.NewStorageError("conversation load", err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &ctx.History); err != nil {
		return nil, core.NewStorageError("conversation load", err)
	}
	return ctx, nil
}

// save writes the context back; insert selects INSERT vs UPDATE so a
// lost row surfaces as an error instead of silently reappearing.
func (s *Store) save(ctx *core.ConversationContext, insert bool) error {
	contextJSON, err := json.Marshal(ctx.Context)
	if err != nil {
		return core.NewStorageError("conversation save", err)
	}
	historyJSON, err := json.Marshal(ctx.History)
	if err != nil {
		return core.NewStorageError("conversation save", err)
	}

	var lastAt any
	if !ctx.LastMessageAt.IsZero() {
		lastAt = ctx.LastMessageAt
	}

	if insert {
		_, err = s.db.Exec(
			`INSERT INTO conversations (agent, user, room, context, history, message_count, last_message_at, created)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ctx.Key.Agent, ctx.Key.User, ctx.Key.Room,
			string(contextJSON), string(historyJSON), ctx.MessageCount, lastAt, ctx.Created,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE conversations SET context = ?, history = ?, message_count = ?, last_message_at = ?
			 WHERE agent = ? AND user = ? AND room = ?`,
			string(contextJSON), string(historyJSON), ctx.MessageCount, lastAt,
			ctx.Key.Agent, ctx.Key.User, ctx.Key.Room,
		)
	}
	return core.NewStorageError("conversation save", err)
}

var _ core.ConversationStore = (*Store)(nil)
