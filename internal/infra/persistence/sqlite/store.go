// Package sqlite persists the in-memory inventory state to a single SQLite
// table as JSON buckets, snapshotting the full state after every successful
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"fiacore/internal/infra/persistence/memory"
	"fiacore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store wraps the in-memory store with durable JSON snapshots.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open constructs a snapshotting SQLite-backed persistent store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "fiacore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var buckets = []string{"evaluations", "units", "strata", "plots", "conditions", "trees"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}
	var snapshot memory.Snapshot
	for bucket, payload := range payloads {
		var decodeErr error
		switch bucket {
		case "evaluations":
			decodeErr = json.Unmarshal(payload, &snapshot.Evaluations)
		case "units":
			decodeErr = json.Unmarshal(payload, &snapshot.Units)
		case "strata":
			decodeErr = json.Unmarshal(payload, &snapshot.Strata)
		case "plots":
			decodeErr = json.Unmarshal(payload, &snapshot.Plots)
		case "conditions":
			decodeErr = json.Unmarshal(payload, &snapshot.Conditions)
		case "trees":
			decodeErr = json.Unmarshal(payload, &snapshot.Trees)
		}
		if decodeErr != nil {
			return fmt.Errorf("decode %s: %w", bucket, decodeErr)
		}
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case "evaluations":
			data, err = json.Marshal(snapshot.Evaluations)
		case "units":
			data, err = json.Marshal(snapshot.Units)
		case "strata":
			data, err = json.Marshal(snapshot.Strata)
		case "plots":
			data, err = json.Marshal(snapshot.Plots)
		case "conditions":
			data, err = json.Marshal(snapshot.Conditions)
		case "trees":
			data, err = json.Marshal(snapshot.Trees)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn in memory, then snapshots state to SQLite.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := s.Store.RunInTransaction(ctx, fn); err != nil {
		return err
	}
	return s.persist()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
