// Package merge moves every record owned by a donor account to a receiver
// account. Operations are described by configuration, bound to record
// collections and strategies by name, and run together in one transaction.
package merge

import (
	"context"
	"fmt"
	"sort"

	"github.com/lherron/transplant/internal/domain"
)

// Strategy reassigns ownership for one bound collection.
type Strategy interface {
	Merge(ctx context.Context, receiver, donor *domain.Account) error
}

// Collection is what a strategy needs from the record store.
type Collection interface {
	HasField(field string) bool
	FilterByOwner(ctx context.Context, field, owner string) ([]*domain.Record, error)
	Persist(ctx context.Context, rec *domain.Record) error
	BulkReassign(ctx context.Context, field, from, to string) (int64, error)
}

// AccountSaver persists account changes inside the merge transaction.
type AccountSaver interface {
	SaveAccount(ctx context.Context, a *domain.Account) error
}

// Binding is everything a strategy factory is given to build a strategy.
type Binding struct {
	Strategy   string
	Model      string
	Collection Collection
	Accounts   AccountSaver
	Field      string
	Params     map[string]any
}

// Factory builds a strategy bound to one collection. Returning an error
// rejects the binding's field or params.
type Factory func(b Binding) (Strategy, error)

// Registry maps strategy locators ("namespace.Name") to factories. Fill it
// at startup; lookups afterwards are read-only.
type Registry struct {
	factories map[string]map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]map[string]Factory)}
}

// Register adds a factory under locator.
func (r *Registry) Register(locator string, f Factory) error {
	namespace, name := SplitLocator(locator)
	if namespace == "" || name == "" {
		return fmt.Errorf("strategy locator %q must have the form namespace.Name", locator)
	}
	if f == nil {
		return fmt.Errorf("strategy %q: nil factory", locator)
	}
	ns, ok := r.factories[namespace]
	if !ok {
		ns = make(map[string]Factory)
		r.factories[namespace] = ns
	}
	if _, dup := ns[name]; dup {
		return fmt.Errorf("strategy %q already registered", locator)
	}
	ns[name] = f
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(locator string, f Factory) {
	if err := r.Register(locator, f); err != nil {
		panic(err)
	}
}

// Lookup finds the factory registered as namespace.name.
func (r *Registry) Lookup(namespace, name string) (Factory, error) {
	ns, ok := r.factories[namespace]
	if !ok {
		return nil, fmt.Errorf("namespace %q: %w", namespace, domain.ErrNotFound)
	}
	f, ok := ns[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q in namespace %q: %w", name, namespace, domain.ErrNotFound)
	}
	return f, nil
}

// Locators lists every registered locator in sorted order.
func (r *Registry) Locators() []string {
	var out []string
	for ns, names := range r.factories {
		for name := range names {
			out = append(out, ns+"."+name)
		}
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry registers the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(LocatorNop, NewNop)
	r.MustRegister(LocatorDefault, NewDefault)
	r.MustRegister(LocatorBatch, NewBatch)
	return r
}
