// Package store persists sources, incidents, and industry overviews, and
// feeds every mutation through the audit trail.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/db"
)

// ErrDuplicateKey reports a unique-constraint collision the store could
// not resolve to an existing row.
var ErrDuplicateKey = errors.New("duplicate key")

// Store is the persistence layer for the ingestion pipeline and the API.
type Store struct {
	pool  *db.Pool
	trail *audit.Trail
}

// New creates a store. The trail may be nil in tests; mutations then skip
// audit recording.
func New(pool *db.Pool, trail *audit.Trail) *Store {
	return &Store{pool: pool, trail: trail}
}

// Pool exposes the underlying pool for components that share it.
func (s *Store) Pool() *db.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) recordAudit(ctx context.Context, entry audit.Entry) error {
	if s == nil || s.trail == nil {
		return nil
	}
	return s.trail.Record(ctx, entry)
}

func snapshot(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
