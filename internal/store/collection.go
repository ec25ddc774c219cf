package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lherron/transplant/internal/domain"
)

// Collection is a record type's accessor bound to one transaction.
type Collection struct {
	tx         *Tx
	rt         *RecordType
	acc        Accessor
	reassigned int64
}

// Type returns the bound record type.
func (c *Collection) Type() *RecordType {
	return c.rt
}

// AccessorName returns the bound accessor's name.
func (c *Collection) AccessorName() string {
	return c.acc.Name
}

// HasField reports whether field is an owner-reference field of the type.
func (c *Collection) HasField(field string) bool {
	return c.rt.HasField(field)
}

// Reassigned counts the rows moved to a new owner through this handle.
func (c *Collection) Reassigned() int64 {
	return c.reassigned
}

func (c *Collection) where(field string) string {
	clause := field + " = ?"
	if c.acc.Where != "" {
		clause += " AND (" + c.acc.Where + ")"
	}
	return clause
}

func (c *Collection) checkField(field string) error {
	if !c.rt.HasField(field) {
		return fmt.Errorf("%s has no owner field %q", c.rt.Locator(), field)
	}
	return nil
}

// FilterByOwner returns the accessor's rows whose field equals owner, in the
// table's natural order.
func (c *Collection) FilterByOwner(ctx context.Context, field, owner string) ([]*domain.Record, error) {
	if err := c.checkField(field); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT uuid, id, %s, etag FROM %s WHERE %s", field, c.rt.Table, c.where(field))
	rows, err := c.tx.tx.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.rt.Locator(), err)
	}
	defer rows.Close()

	var records []*domain.Record
	for rows.Next() {
		rec := &domain.Record{Field: field}
		if err := rows.Scan(&rec.UUID, &rec.ID, &rec.Owner, &rec.ETag); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.rt.Locator(), err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c.rt.Locator(), err)
	}
	return records, nil
}

// Persist saves a single record's owner field. This is the per-record save:
// it advances the etag, stamps updated_at and appends a
// "<resource>.reassigned" event.
func (c *Collection) Persist(ctx context.Context, rec *domain.Record) error {
	if err := c.checkField(rec.Field); err != nil {
		return err
	}

	var previous sql.NullString
	err := c.tx.tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE uuid = ?", rec.Field, c.rt.Table), rec.UUID,
	).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", c.rt.Locator(), rec.UUID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s %s: %w", c.rt.Locator(), rec.ID, err)
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ?, etag = etag + 1, updated_at = %s WHERE uuid = ?", c.rt.Table, rec.Field, nowExpr)
	if _, err := c.tx.tx.ExecContext(ctx, query, rec.Owner, rec.UUID); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", c.rt.Locator(), rec.ID, err)
	}
	if err := c.tx.tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT etag FROM %s WHERE uuid = ?", c.rt.Table), rec.UUID,
	).Scan(&rec.ETag); err != nil {
		return fmt.Errorf("failed to read %s etag: %w", c.rt.Locator(), err)
	}

	if previous.String != rec.Owner {
		c.reassigned++
	}
	if err := c.tx.ew.LogRecordReassigned(c.tx.tx, c.tx.actorUUID, c.rt.ResourceType, rec, previous.String); err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}
	return nil
}

// BulkReassign moves every accessor row whose field equals from over to to
// in one UPDATE statement. No per-record save runs: etags, updated_at and the
// event log are left untouched.
func (c *Collection) BulkReassign(ctx context.Context, field, from, to string) (int64, error) {
	if err := c.checkField(field); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s", c.rt.Table, field, c.where(field))
	res, err := c.tx.tx.ExecContext(ctx, query, to, from)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update %s: %w", c.rt.Locator(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update %s: %w", c.rt.Locator(), err)
	}
	if from != to {
		c.reassigned += n
	}
	return n, nil
}
