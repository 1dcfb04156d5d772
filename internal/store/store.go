package store

import (
	"context"
	"fmt"
	"time"

	"tailorworks/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Global tables shared by all tenants. Per-tenant tables are created lazily
// by the Registry.
const globalSchema = `
CREATE TABLE IF NOT EXISTS tenants (
	tenant_id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS sequence_counters (
	name TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);
`

type Store struct {
	db        *sqlx.DB
	registry  *Registry
	sequences *Sequences
}

// NewStore connects to the database and prepares the global schema
func NewStore(databaseURL string, maxCollectionsPerShop int) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(globalSchema); err != nil {
		return nil, fmt.Errorf("failed to prepare global schema: %w", err)
	}

	return NewStoreWithDB(db, maxCollectionsPerShop), nil
}

// NewStoreWithDB wraps an already-open connection. The global schema is
// assumed to exist.
func NewStoreWithDB(db *sqlx.DB, maxCollectionsPerShop int) *Store {
	return &Store{
		db:        db,
		registry:  NewRegistry(db, maxCollectionsPerShop),
		sequences: NewSequences(db),
	}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Registry returns the tenant collection registry
func (s *Store) Registry() *Registry {
	return s.registry
}

// Sequences returns the sequence allocator
func (s *Store) Sequences() *Sequences {
	return s.sequences
}

// BeginTx opens the transaction scope for a multi-collection write. A
// failure to open the session is surfaced as TransactionUnavailable so no
// dependent write proceeds.
func (s *Store) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionUnavailable, err)
	}
	return tx, nil
}
