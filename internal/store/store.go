// Package store implements the namespace-scoped embedded persistence
// layer: one SQLite database per namespace for relational state, an
// in-memory HNSW graph for vector search, and a bleve index for BM25
// keyword search. Multi-row writes run inside a single transaction under
// the namespace write lock.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vuxtra/jivemcp/internal/apperr"
)

// Store is a single namespace's persistence handle: a SQLite connection,
// a keyword index, and a vector index, guarded by one write lock.
type Store struct {
	Namespace string

	db    *sql.DB
	kw    *keywordIndex
	vw    *vectorIndex
	retry retryConfig

	// writeMu serializes all mutating operations within this namespace.
	// Non-reentrant.
	writeMu sync.Mutex
}

// Open creates or opens the namespace's SQLite database at dbPath and its
// sibling bleve index directory at bleveDir, applying the schema and
// rebuilding the in-memory vector index from persisted rows.
func Open(namespace, dbPath, bleveDir string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "opening sqlite database", err)
	}
	db.SetMaxOpenConns(1) // single-writer SQLite file; serialize via writeMu anyway.

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.StoreError, "applying schema", err)
	}

	kw, err := openKeywordIndex(bleveDir)
	if err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.StoreError, "opening keyword index", err)
	}

	s := &Store{Namespace: namespace, db: db, kw: kw, vw: newVectorIndex(), retry: defaultRetryConfig()}
	if err := s.rebuildVectorIndex(); err != nil {
		kw.Close()
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the SQLite connection and keyword index. The vector
// index is purely in-memory and is dropped with the Store value.
func (s *Store) Close() error {
	var firstErr error
	if err := s.kw.Close(); err != nil {
		firstErr = err
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// WithWriteLock runs fn holding the namespace's write lock. fn should
// not itself suspend on another namespace's write lock.
func (s *Store) WithWriteLock(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

// runInTx runs fn inside a transaction, committing on success and
// rolling back on any error. Callers are expected to already hold the
// namespace write lock for multi-row operations. Transient
// failures (SQLITE_BUSY and friends) retry the whole transaction with
// backoff; the rollback restores the pre-state so fn re-runs cleanly.
func (s *Store) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return withRetry(ctx, s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return apperr.Wrap(apperr.StoreError, "beginning transaction", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return apperr.Wrap(apperr.StoreError, "committing transaction", err)
		}
		return nil
	})
}

// execWrite runs a single mutating statement with the same transient-error
// retry policy as runInTx. opName labels the wrapped error.
func (s *Store) execWrite(ctx context.Context, opName, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := withRetry(ctx, s.retry, func() error {
		r, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return apperr.Wrap(apperr.StoreError, opName, err)
		}
		res = r
		return nil
	})
	return res, err
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func nowISO() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func parseISO(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// vectorOf decodes a BLOB column (little-endian float32 array) into a
// vector. See encodeVector in vector.go for the inverse.
func vectorOf(blob []byte) []float32 {
	return decodeVector(blob)
}

// notFound builds the stable NotFound apperr for a missing entity id.
func (s *Store) notFound(entity, id string) error {
	return apperr.Newf(apperr.NotFound, "%s %q not found in namespace %q", entity, id, s.Namespace)
}
