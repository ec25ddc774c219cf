package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/store"
)

func TestSplitLocator(t *testing.T) {
	tests := []struct {
		in, ns, name string
	}{
		{"tracker.Task", "tracker", "Task"},
		{"a.b.c.Strategy", "a.b.c", "Strategy"},
		{"Bare", "", "Bare"},
		{"trailing.", "trailing", ""},
	}
	for _, tt := range tests {
		ns, name := SplitLocator(tt.in)
		assert.Equal(t, tt.ns, ns, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
	}
}

func resolveOne(t *testing.T, r *Resolver, d domain.OperationDescriptor) (*Operation, error) {
	t.Helper()
	e := newEnv(t)
	var op *Operation
	var resolveErr error
	err := e.store.ReadOnly(context.Background(), func(tx *store.Tx) error {
		op, resolveErr = r.Resolve(tx, d)
		return nil
	})
	require.NoError(t, err)
	return op, resolveErr
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(nil, nil)

	op, err := resolveOne(t, r, domain.OperationDescriptor{Model: "tracker.Task", Accessor: "live", Strategy: LocatorBatch, Field: "assignee"})
	require.NoError(t, err)
	assert.Equal(t, "tracker.Task", op.Type.Locator())
	assert.Equal(t, "live", op.Collection.AccessorName())
	assert.Equal(t, "assignee", op.Field)
	assert.Equal(t, KindBatch, op.Strategy.(*builtin).Kind())

	op, err = resolveOne(t, r, domain.OperationDescriptor{Model: "tracker.Attachment", Strategy: LocatorDefault})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAccessor, op.Collection.AccessorName())
	assert.Equal(t, domain.DefaultOwnerField, op.Field)
}

func TestResolver_ResolveErrors(t *testing.T) {
	r := NewResolver(nil, nil)

	tests := []struct {
		name string
		desc domain.OperationDescriptor
		kind domain.ConfigErrorKind
	}{
		{"unknown namespace", domain.OperationDescriptor{Model: "billing.Task", Strategy: LocatorDefault}, domain.UnresolvableType},
		{"unknown model", domain.OperationDescriptor{Model: "tracker.Invoice", Strategy: LocatorDefault}, domain.UnresolvableType},
		{"bare model", domain.OperationDescriptor{Model: "Task", Strategy: LocatorDefault}, domain.UnresolvableType},
		{"unknown accessor", domain.OperationDescriptor{Model: "tracker.Attachment", Accessor: "live", Strategy: LocatorDefault}, domain.UnresolvableAccessor},
		{"unknown strategy", domain.OperationDescriptor{Model: "tracker.Task", Strategy: "merge.Clever"}, domain.UnresolvableStrategy},
		{"unknown strategy namespace", domain.OperationDescriptor{Model: "tracker.Task", Strategy: "plugins.Default"}, domain.UnresolvableStrategy},
		{"unknown field", domain.OperationDescriptor{Model: "tracker.Task", Strategy: LocatorDefault, Field: "title"}, domain.InvalidParams},
		{"params on builtin", domain.OperationDescriptor{Model: "tracker.Task", Strategy: LocatorBatch, Params: map[string]any{"chunk": 10}}, domain.InvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := resolveOne(t, r, tt.desc)
			require.Error(t, err)
			assert.Nil(t, op)
			assert.True(t, domain.IsConfigurationError(err, tt.kind), "got %v", err)
		})
	}
}

func TestResolver_CustomFactoryReceivesParams(t *testing.T) {
	strategies := DefaultRegistry()
	var got Binding
	strategies.MustRegister("custom.Recorder", func(b Binding) (Strategy, error) {
		got = b
		return NewNop(Binding{})
	})

	_, err := resolveOne(t, NewResolver(nil, strategies), domain.OperationDescriptor{
		Model:    "tracker.Comment",
		Strategy: "custom.Recorder",
		Field:    "author",
		Params:   map[string]any{"note": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom.Recorder", got.Strategy)
	assert.Equal(t, "tracker.Comment", got.Model)
	assert.Equal(t, "author", got.Field)
	assert.Equal(t, "x", got.Params["note"])
	assert.NotNil(t, got.Collection)
	assert.NotNil(t, got.Accounts)
}

func TestResolver_FactoryReturningNoStrategy(t *testing.T) {
	strategies := DefaultRegistry()
	strategies.MustRegister("custom.Empty", func(Binding) (Strategy, error) {
		return nil, nil
	})

	op, err := resolveOne(t, NewResolver(nil, strategies), domain.OperationDescriptor{
		Model:    "tracker.Task",
		Strategy: "custom.Empty",
	})
	assert.Nil(t, op)
	assert.True(t, domain.IsConfigurationError(err, domain.InvalidParams), "got %v", err)
}

func TestResolver_Validate(t *testing.T) {
	e := newEnv(t)
	r := NewResolver(e.store.Catalog(), nil)

	results, err := r.Validate(context.Background(), e.store, []domain.OperationDescriptor{
		{Model: "tracker.Task", Strategy: LocatorDefault},
		{Model: "tracker.Nope", Strategy: LocatorDefault},
		{Model: "tracker.Task", Strategy: ""},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.True(t, domain.IsConfigurationError(results[1].Err, domain.UnresolvableType))
	assert.Error(t, results[2].Err)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{LocatorBatch, LocatorDefault, LocatorNop}, r.Locators())

	assert.Error(t, r.Register(LocatorDefault, NewDefault), "duplicate")
	assert.Error(t, r.Register("NoNamespace", NewDefault))
	assert.Error(t, r.Register("x.Y", nil))
	require.NoError(t, r.Register("x.Y", NewNop))

	_, err := r.Lookup("x", "Z")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
