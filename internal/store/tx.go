package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/events"
)

const nowExpr = "strftime('%Y-%m-%dT%H:%M:%SZ','now')"

// ErrTxClosed is returned when a committed or rolled back Tx is reused.
var ErrTxClosed = errors.New("transaction already closed")

// Tx is one explicit transaction scope. Every mutation of accounts and
// records during a merge goes through it.
type Tx struct {
	tx        *sql.Tx
	ew        *events.Writer
	actorUUID string
	done      bool
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the transaction back. It is a no-op after Commit or a
// previous Rollback, and after the driver already aborted the transaction
// because its context was cancelled.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// Events returns the event writer bound to this transaction's database.
func (t *Tx) Events() *events.Writer {
	return t.ew
}

// SQL exposes the underlying transaction for event writes.
func (t *Tx) SQL() *sql.Tx {
	return t.tx
}

// ActorUUID is the account recorded as the actor on events written in t.
func (t *Tx) ActorUUID() string {
	return t.actorUUID
}

// Collection binds rt's accessor to this transaction.
func (t *Tx) Collection(rt *RecordType, acc Accessor) *Collection {
	return &Collection{tx: t, rt: rt, acc: acc}
}

// GetAccount loads an account as seen inside the transaction.
func (t *Tx) GetAccount(ctx context.Context, accountUUID string) (*domain.Account, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT uuid, id, slug, display_name, role, active, etag, created_at, updated_at
		FROM accounts WHERE uuid = ?
	`, accountUUID)
	a, err := ScanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", accountUUID, domain.ErrNotFound)
	}
	return a, err
}

// SaveAccount persists the account's mutable fields. The stored etag must
// still equal a.ETag; on success a.ETag is advanced.
func (t *Tx) SaveAccount(ctx context.Context, a *domain.Account) error {
	active := 0
	if a.Active {
		active = 1
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET active = ?, display_name = ?, etag = etag + 1, updated_at = `+nowExpr+`
		WHERE uuid = ? AND etag = ?
	`, active, a.DisplayName, a.UUID, a.ETag)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", a.Label(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", a.Label(), err)
	}
	if n == 0 {
		var current int64
		err := t.tx.QueryRowContext(ctx, "SELECT etag FROM accounts WHERE uuid = ?", a.UUID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %s: %w", a.Label(), domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read account etag: %w", err)
		}
		return domain.CheckETag(a.ETag, current)
	}

	a.ETag++
	if err := t.ew.LogAccountUpdated(t.tx, t.actorUUID, a, map[string]any{"active": a.Active}); err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}
	return nil
}

// OwnershipListing returns one line per (record, owner field) currently
// owned by any of the given accounts, across every catalogued type:
//
//	tracker.Task T-00003 owner=A-00001
//
// Lines are sorted so listings taken before and after a merge diff cleanly.
func (t *Tx) OwnershipListing(ctx context.Context, catalog *Catalog, accountUUIDs ...string) ([]string, error) {
	if len(accountUUIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(accountUUIDs)), ",")
	args := make([]any, len(accountUUIDs))
	for i, u := range accountUUIDs {
		args[i] = u
	}

	var lines []string
	for _, rt := range catalog.Types() {
		for _, field := range rt.OwnerFields {
			query := fmt.Sprintf(`
				SELECT r.id, a.id FROM %s r JOIN accounts a ON a.uuid = r.%s
				WHERE r.%s IN (%s)
			`, rt.Table, field, field, placeholders)
			rows, err := t.tx.QueryContext(ctx, query, args...)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s.%s: %w", rt.Locator(), field, err)
			}
			for rows.Next() {
				var recordID, accountID string
				if err := rows.Scan(&recordID, &accountID); err != nil {
					rows.Close()
					return nil, fmt.Errorf("failed to scan %s: %w", rt.Locator(), err)
				}
				lines = append(lines, fmt.Sprintf("%s %s %s=%s", rt.Locator(), recordID, field, accountID))
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, err
			}
			rows.Close()
		}
	}
	sort.Strings(lines)
	return lines, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanAccount scans the account column list used throughout the store.
func ScanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var active int
	var createdAt, updatedAt string
	if err := row.Scan(&a.UUID, &a.ID, &a.Slug, &a.DisplayName, &a.Role, &active, &a.ETag, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Active = active == 1
	a.CreatedAt, _ = domain.ParseTimestamp(createdAt)
	a.UpdatedAt, _ = domain.ParseTimestamp(updatedAt)
	return &a, nil
}
