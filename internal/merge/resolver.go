package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/store"
)

// Operation is a descriptor bound to a live collection and a strategy. It
// belongs to one merge and is discarded afterwards.
type Operation struct {
	Descriptor domain.OperationDescriptor
	Type       *store.RecordType
	Collection *store.Collection
	Strategy   Strategy
	Field      string
}

// Merge runs the operation's strategy.
func (op *Operation) Merge(ctx context.Context, receiver, donor *domain.Account) error {
	return op.Strategy.Merge(ctx, receiver, donor)
}

// Resolver binds operation descriptors to record collections and strategies.
type Resolver struct {
	catalog    *store.Catalog
	strategies *Registry
}

// NewResolver creates a resolver over catalog and strategies. Nil arguments
// select the defaults.
func NewResolver(catalog *store.Catalog, strategies *Registry) *Resolver {
	if catalog == nil {
		catalog = store.DefaultCatalog()
	}
	if strategies == nil {
		strategies = DefaultRegistry()
	}
	return &Resolver{catalog: catalog, strategies: strategies}
}

// SplitLocator splits "model.path.Name" into ("model.path", "Name").
func SplitLocator(locator string) (namespace, name string) {
	i := strings.LastIndex(locator, ".")
	if i < 0 {
		return "", locator
	}
	return locator[:i], locator[i+1:]
}

// Resolve binds d inside tx. It only performs lookups; any failure is a
// *domain.ConfigurationError and nothing is bound.
func (r *Resolver) Resolve(tx *store.Tx, d domain.OperationDescriptor) (*Operation, error) {
	namespace, name := SplitLocator(d.Model)
	rt, err := r.catalog.LookupType(namespace, name)
	if err != nil {
		return nil, &domain.ConfigurationError{
			Kind:    domain.UnresolvableType,
			Locator: d.Model,
			Msg:     fmt.Sprintf("cannot resolve model '%s' in namespace '%s'", name, namespace),
			Err:     err,
		}
	}

	accessorName := d.AccessorName()
	acc, err := r.catalog.LookupAccessor(rt, accessorName)
	if err != nil {
		return nil, &domain.ConfigurationError{
			Kind:    domain.UnresolvableAccessor,
			Locator: d.Model,
			Msg:     fmt.Sprintf("model '%s' does not have accessor '%s'", name, accessorName),
			Err:     err,
		}
	}

	strategyNS, strategyName := SplitLocator(d.Strategy)
	factory, err := r.strategies.Lookup(strategyNS, strategyName)
	if err != nil {
		return nil, &domain.ConfigurationError{
			Kind:    domain.UnresolvableStrategy,
			Locator: d.Strategy,
			Msg:     fmt.Sprintf("cannot resolve strategy '%s' in namespace '%s'", strategyName, strategyNS),
			Err:     err,
		}
	}

	coll := tx.Collection(rt, acc)
	field := d.FieldName()
	strategy, err := factory(Binding{
		Strategy:   d.Strategy,
		Model:      d.Model,
		Collection: coll,
		Accounts:   tx,
		Field:      field,
		Params:     d.Params,
	})
	if err != nil {
		return nil, &domain.ConfigurationError{
			Kind:    domain.InvalidParams,
			Locator: d.Strategy,
			Msg:     fmt.Sprintf("strategy '%s' rejected operation on %s", d.Strategy, d.Model),
			Err:     err,
		}
	}
	if strategy == nil {
		return nil, &domain.ConfigurationError{
			Kind:    domain.InvalidParams,
			Locator: d.Strategy,
			Msg:     fmt.Sprintf("strategy '%s' returned no strategy for %s", d.Strategy, d.Model),
		}
	}

	return &Operation{
		Descriptor: d,
		Type:       rt,
		Collection: coll,
		Strategy:   strategy,
		Field:      field,
	}, nil
}

// ValidationResult is the outcome of resolving one configured descriptor.
type ValidationResult struct {
	Descriptor domain.OperationDescriptor
	Err        error
}

// Validate resolves every descriptor inside a transaction that is rolled
// back, reporting each descriptor's error independently.
func (r *Resolver) Validate(ctx context.Context, st *store.Store, descriptors []domain.OperationDescriptor) ([]ValidationResult, error) {
	results := make([]ValidationResult, 0, len(descriptors))
	err := st.ReadOnly(ctx, func(tx *store.Tx) error {
		for _, d := range descriptors {
			res := ValidationResult{Descriptor: d}
			if err := domain.ValidateDescriptor(d); err != nil {
				res.Err = err
			} else if _, err := r.Resolve(tx, d); err != nil {
				res.Err = err
			}
			results = append(results, res)
		}
		return nil
	})
	return results, err
}
