// Package events appends audit entries to event_log and reads them back.
package events

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lherron/transplant/internal/domain"
)

const (
	TypeAccountCreated = "account.created"
	TypeAccountUpdated = "account.updated"
	TypeAccountMerged  = "account.merged"
)

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(tx *sql.Tx, event *domain.Event) error {
	query := `
		INSERT INTO event_log (actor_uuid, resource_type, resource_uuid, event_type, etag, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	executor := w.getExecutor(tx)
	_, err := executor.Exec(query, event.ActorUUID, event.ResourceType, event.ResourceUUID, event.EventType, event.ETag, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogAccountCreated logs an account creation event
func (w *Writer) LogAccountCreated(tx *sql.Tx, actorUUID string, account *domain.Account) error {
	return w.logJSON(tx, actorUUID, "account", account.UUID, TypeAccountCreated, &account.ETag, map[string]any{
		"slug": account.Slug,
		"role": account.Role,
	})
}

// LogAccountUpdated logs an account update event
func (w *Writer) LogAccountUpdated(tx *sql.Tx, actorUUID string, account *domain.Account, changes map[string]any) error {
	return w.logJSON(tx, actorUUID, "account", account.UUID, TypeAccountUpdated, &account.ETag, changes)
}

// LogRecordReassigned logs the per-record save that moves a record to a new owner
func (w *Writer) LogRecordReassigned(tx *sql.Tx, actorUUID, resourceType string, record *domain.Record, from string) error {
	return w.logJSON(tx, actorUUID, resourceType, record.UUID, resourceType+".reassigned", &record.ETag, map[string]any{
		"id":    record.ID,
		"field": record.Field,
		"from":  from,
		"to":    record.Owner,
	})
}

// MergeOperation summarizes one operation of a committed merge.
type MergeOperation struct {
	Model      string `json:"model"`
	Accessor   string `json:"accessor"`
	Field      string `json:"field"`
	Strategy   string `json:"strategy"`
	Reassigned int64  `json:"reassigned"`
}

// LogAccountMerged logs a committed merge against the donor account
func (w *Writer) LogAccountMerged(tx *sql.Tx, actorUUID string, receiver, donor *domain.Account, ops []MergeOperation) error {
	return w.logJSON(tx, actorUUID, "account", donor.UUID, TypeAccountMerged, nil, map[string]any{
		"receiver":    receiver.UUID,
		"receiver_id": receiver.ID,
		"donor":       donor.UUID,
		"donor_id":    donor.ID,
		"operations":  ops,
	})
}

func (w *Writer) logJSON(tx *sql.Tx, actorUUID, resourceType, resourceUUID, eventType string, etag *int64, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	payloadStr := string(data)

	var actor *string
	if actorUUID != "" {
		actor = &actorUUID
	}

	return w.LogEvent(tx, &domain.Event{
		ActorUUID:    actor,
		ResourceType: resourceType,
		ResourceUUID: &resourceUUID,
		EventType:    eventType,
		ETag:         etag,
		Payload:      &payloadStr,
	})
}

// List returns the most recent events of the given type, newest first. An
// empty eventType lists every type.
func List(db *sql.DB, eventType string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, timestamp, actor_uuid, resource_type, resource_uuid, event_type, etag, payload
		FROM event_log
		WHERE ? = '' OR event_type = ?
		ORDER BY id DESC
		LIMIT ?
	`, eventType, eventType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var ev domain.Event
		var ts string
		if err := rows.Scan(&ev.ID, &ts, &ev.ActorUUID, &ev.ResourceType, &ev.ResourceUUID, &ev.EventType, &ev.ETag, &ev.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if parsed, err := domain.ParseTimestamp(ts); err == nil {
			ev.Timestamp = parsed
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
