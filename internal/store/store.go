// Package store is the record store the merge engine runs against. It binds
// catalogued record types to collections inside one explicit transaction and
// performs the per-record saves, bulk updates and account writes a merge needs.
package store

import (
	"context"
	"fmt"

	"github.com/lherron/transplant/internal/db"
	"github.com/lherron/transplant/internal/events"
)

// Store is the root store. It holds the database and the record catalog.
type Store struct {
	db      *db.DB
	catalog *Catalog
}

// New creates a new Store wrapping the given database connection. A nil
// catalog selects DefaultCatalog.
func New(database *db.DB, catalog *Catalog) *Store {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Store{db: database, catalog: catalog}
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// Catalog returns the record catalog.
func (s *Store) Catalog() *Catalog {
	return s.catalog
}

// Begin opens a transaction scope. Callers must either Commit or Rollback;
// deferring Rollback right after Begin is always safe.
func (s *Store) Begin(ctx context.Context, actorUUID string) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{
		tx:        tx,
		ew:        events.NewWriter(s.db.DB),
		actorUUID: actorUUID,
	}, nil
}

// ReadOnly runs fn inside a transaction that is always rolled back.
func (s *Store) ReadOnly(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.Begin(ctx, "")
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}
