package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lherron/transplant/internal/domain"
)

const (
	LocatorNop     = "merge.Nop"
	LocatorDefault = "merge.Default"
	LocatorBatch   = "merge.Batch"
)

// Kind selects how a built-in strategy reassigns records.
type Kind int

const (
	// KindNop leaves the store unchanged.
	KindNop Kind = iota
	// KindDefault saves every reassigned record individually so per-record
	// save hooks run once per record.
	KindDefault
	// KindBatch reassigns every record in one bulk update. Per-record save
	// hooks do not run.
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindNop:
		return "nop"
	case KindDefault:
		return "default"
	case KindBatch:
		return "batch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type builtin struct {
	kind     Kind
	locator  string
	model    string
	coll     Collection
	accounts AccountSaver
	field    string
}

// NewNop builds a strategy that does nothing.
func NewNop(b Binding) (Strategy, error) {
	return newBuiltin(KindNop, b)
}

// NewDefault builds the reference strategy: deactivate the donor, then
// reassign and save each donor-owned record one at a time.
func NewDefault(b Binding) (Strategy, error) {
	return newBuiltin(KindDefault, b)
}

// NewBatch builds a strategy with Default's ownership semantics that
// reassigns records in a single bulk update, skipping per-record saves.
func NewBatch(b Binding) (Strategy, error) {
	return newBuiltin(KindBatch, b)
}

func newBuiltin(kind Kind, b Binding) (Strategy, error) {
	if len(b.Params) > 0 {
		keys := make([]string, 0, len(b.Params))
		for k := range b.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s strategy takes no params, got %s", kind, strings.Join(keys, ", "))
	}
	if kind != KindNop {
		if b.Collection == nil || b.Accounts == nil {
			return nil, fmt.Errorf("%s strategy needs a collection and an account store", kind)
		}
		if !b.Collection.HasField(b.Field) {
			return nil, fmt.Errorf("%s has no owner field %q", b.Model, b.Field)
		}
	}
	return &builtin{
		kind:     kind,
		locator:  b.Strategy,
		model:    b.Model,
		coll:     b.Collection,
		accounts: b.Accounts,
		field:    b.Field,
	}, nil
}

// Kind reports which built-in s is.
func (s *builtin) Kind() Kind {
	return s.kind
}

func (s *builtin) Merge(ctx context.Context, receiver, donor *domain.Account) error {
	if s.kind == KindNop {
		return nil
	}
	// Merging an account into itself must never deactivate it.
	if receiver.Same(donor) {
		return nil
	}

	if donor.Active {
		donor.Active = false
		if err := s.accounts.SaveAccount(ctx, donor); err != nil {
			donor.Active = true
			return s.fail(fmt.Errorf("failed to deactivate %s: %w", donor.Label(), err))
		}
	}

	if s.kind == KindBatch {
		if _, err := s.coll.BulkReassign(ctx, s.field, donor.UUID, receiver.UUID); err != nil {
			return s.fail(err)
		}
		return nil
	}

	records, err := s.coll.FilterByOwner(ctx, s.field, donor.UUID)
	if err != nil {
		return s.fail(err)
	}
	for _, rec := range records {
		rec.Owner = receiver.UUID
		if err := s.coll.Persist(ctx, rec); err != nil {
			return s.fail(err)
		}
	}
	return nil
}

func (s *builtin) fail(err error) error {
	return &domain.StrategyExecutionError{Strategy: s.locator, Model: s.model, Err: err}
}
