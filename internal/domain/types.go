package domain

import (
	"time"
)

// AccountRole represents the kind of principal behind an account
type AccountRole string

const (
	AccountRoleHuman  AccountRole = "human"
	AccountRoleAgent  AccountRole = "agent"
	AccountRoleSystem AccountRole = "system"
)

// DefaultOwnerField is the owner-reference field used when an operation
// descriptor does not name one.
const DefaultOwnerField = "owner"

// DefaultAccessor is the collection accessor used when an operation
// descriptor does not name one.
const DefaultAccessor = "objects"

// Account represents an account that owns records
type Account struct {
	UUID        string    `json:"uuid" db:"uuid"`
	ID          string    `json:"id" db:"id"`
	Slug        string    `json:"slug" db:"slug"`
	DisplayName *string   `json:"display_name,omitempty" db:"display_name"`
	Role        string    `json:"role" db:"role"` // human, agent, system
	Active      bool      `json:"active" db:"active"`
	ETag        int64     `json:"etag" db:"etag"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Same reports whether a and b denote the same account identity.
func (a *Account) Same(b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b || a.UUID == b.UUID
}

// Label returns the friendly ID, falling back to the slug.
func (a *Account) Label() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Slug
}

// Record is an owned row addressed through a single owner-reference field.
// Nothing else about the row is inspected.
type Record struct {
	UUID  string `json:"uuid"`
	ID    string `json:"id"`
	Field string `json:"field"`
	Owner string `json:"owner"`
	ETag  int64  `json:"etag"`
}

// OperationDescriptor is one configured merge operation. Order within the
// configured list is the order operations run in.
type OperationDescriptor struct {
	Model    string         `json:"model" yaml:"model" toml:"model"`
	Accessor string         `json:"accessor,omitempty" yaml:"accessor,omitempty" toml:"accessor,omitempty"`
	Strategy string         `json:"strategy" yaml:"strategy" toml:"strategy"`
	Field    string         `json:"field,omitempty" yaml:"field,omitempty" toml:"field,omitempty"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
}

// AccessorName returns the configured accessor or DefaultAccessor.
func (d OperationDescriptor) AccessorName() string {
	if d.Accessor == "" {
		return DefaultAccessor
	}
	return d.Accessor
}

// FieldName returns the configured owner field or DefaultOwnerField.
func (d OperationDescriptor) FieldName() string {
	if d.Field == "" {
		return DefaultOwnerField
	}
	return d.Field
}

// String renders the descriptor the way it appears in logs and reports.
func (d OperationDescriptor) String() string {
	return d.Model + "." + d.AccessorName() + "[" + d.FieldName() + "] via " + d.Strategy
}

// Event represents an event in the event log
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	ActorUUID    *string   `json:"actor_uuid,omitempty" db:"actor_uuid"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceUUID *string   `json:"resource_uuid,omitempty" db:"resource_uuid"`
	EventType    string    `json:"event_type" db:"event_type"`
	ETag         *int64    `json:"etag,omitempty" db:"etag"`
	Payload      *string   `json:"payload,omitempty" db:"payload"` // JSON
}
