// Package accounts resolves account identifiers (slug, friendly ID or UUID)
// and creates accounts.
package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/events"
	"github.com/lherron/transplant/internal/id"
	"github.com/lherron/transplant/internal/slug"
	"github.com/lherron/transplant/internal/store"
)

const selectAccount = `
	SELECT uuid, id, slug, display_name, role, active, etag, created_at, updated_at
	FROM accounts
`

// Resolver looks accounts up by any of their identifiers.
type Resolver struct {
	db *sql.DB
}

// NewResolver creates a new account resolver
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve returns the UUID of the account named by identifier.
func (r *Resolver) Resolve(identifier string) (string, error) {
	a, err := r.Lookup(identifier)
	if err != nil {
		return "", err
	}
	return a.UUID, nil
}

// Lookup loads the account named by identifier, trying UUID, friendly ID
// and slug in that order.
func (r *Resolver) Lookup(identifier string) (*domain.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("empty account identifier")
	}

	var row *sql.Row
	switch {
	case id.IsUUID(identifier):
		row = r.db.QueryRow(selectAccount+" WHERE uuid = ?", strings.ToLower(identifier))
	case id.IsAccountID(identifier):
		row = r.db.QueryRow(selectAccount+" WHERE id = ?", strings.TrimSpace(identifier))
	default:
		normalized, err := slug.Normalize(identifier)
		if err != nil {
			return nil, fmt.Errorf("invalid account identifier %q: %w", identifier, err)
		}
		row = r.db.QueryRow(selectAccount+" WHERE slug = ?", normalized)
	}

	a, err := store.ScanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", identifier, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %q: %w", identifier, err)
	}
	return a, nil
}

// Get loads an account by UUID.
func (r *Resolver) Get(accountUUID string) (*domain.Account, error) {
	return r.Lookup(accountUUID)
}

// List returns every account ordered by friendly ID.
func (r *Resolver) List() ([]*domain.Account, error) {
	rows, err := r.db.Query(selectAccount + " ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a, err := store.ScanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts a new active account. The slug must already be normalized.
func (r *Resolver) Create(accountSlug, displayName, role string) (*domain.Account, error) {
	if err := slug.Validate(accountSlug); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountRole(role); err != nil {
		return nil, err
	}

	var name *string
	if displayName != "" {
		name = &displayName
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	accountUUID := uuid.NewString()
	if _, err := tx.Exec(`INSERT INTO accounts (uuid, slug, display_name, role) VALUES (?, ?, ?, ?)`,
		accountUUID, accountSlug, name, role); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	a, err := store.ScanAccount(tx.QueryRow(selectAccount+" WHERE uuid = ?", accountUUID))
	if err != nil {
		return nil, fmt.Errorf("failed to read created account: %w", err)
	}

	if err := events.NewWriter(r.db).LogAccountCreated(tx, "", a); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account: %w", err)
	}
	return a, nil
}
