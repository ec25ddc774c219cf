package store

import (
	"fmt"
	"sort"

	"github.com/lherron/transplant/internal/domain"
)

// Accessor is a named view over a record type's rows. Where is an SQL
// predicate on the type's table; empty selects every row.
type Accessor struct {
	Name  string
	Where string
}

// RecordType describes a table whose rows are owned by accounts.
type RecordType struct {
	Namespace    string
	Name         string
	Table        string
	ResourceType string
	OwnerFields  []string
	Accessors    map[string]Accessor
}

// Locator returns the "namespace.Name" form of the type.
func (rt *RecordType) Locator() string {
	return rt.Namespace + "." + rt.Name
}

// HasField reports whether field is one of the type's owner-reference fields.
func (rt *RecordType) HasField(field string) bool {
	for _, f := range rt.OwnerFields {
		if f == field {
			return true
		}
	}
	return false
}

// Catalog maps namespaces to record types. It is populated at startup and
// only read afterwards, so concurrent lookups are safe.
type Catalog struct {
	namespaces map[string]map[string]*RecordType
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{namespaces: make(map[string]map[string]*RecordType)}
}

// Register adds rt under its namespace. Every type gets the "objects"
// accessor if it does not declare one.
func (c *Catalog) Register(rt *RecordType) {
	if rt.Accessors == nil {
		rt.Accessors = make(map[string]Accessor)
	}
	if _, ok := rt.Accessors[domain.DefaultAccessor]; !ok {
		rt.Accessors[domain.DefaultAccessor] = Accessor{Name: domain.DefaultAccessor}
	}
	ns, ok := c.namespaces[rt.Namespace]
	if !ok {
		ns = make(map[string]*RecordType)
		c.namespaces[rt.Namespace] = ns
	}
	ns[rt.Name] = rt
}

// LookupType finds a record type by namespace and name.
func (c *Catalog) LookupType(namespace, name string) (*RecordType, error) {
	ns, ok := c.namespaces[namespace]
	if !ok {
		return nil, fmt.Errorf("namespace %q: %w", namespace, domain.ErrNotFound)
	}
	rt, ok := ns[name]
	if !ok {
		return nil, fmt.Errorf("type %q in namespace %q: %w", name, namespace, domain.ErrNotFound)
	}
	return rt, nil
}

// LookupAccessor finds a named accessor on rt.
func (c *Catalog) LookupAccessor(rt *RecordType, name string) (Accessor, error) {
	acc, ok := rt.Accessors[name]
	if !ok {
		return Accessor{}, fmt.Errorf("accessor %q on %s: %w", name, rt.Locator(), domain.ErrNotFound)
	}
	return acc, nil
}

// Types returns every registered type ordered by locator.
func (c *Catalog) Types() []*RecordType {
	var out []*RecordType
	for _, ns := range c.namespaces {
		for _, rt := range ns {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Locator() < out[j].Locator() })
	return out
}

// DefaultCatalog registers the tracker record types.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register(&RecordType{
		Namespace:    "tracker",
		Name:         "Container",
		Table:        "containers",
		ResourceType: "container",
		OwnerFields:  []string{"owner"},
		Accessors: map[string]Accessor{
			"open": {Name: "open", Where: "archived_at IS NULL"},
		},
	})
	c.Register(&RecordType{
		Namespace:    "tracker",
		Name:         "Task",
		Table:        "tasks",
		ResourceType: "task",
		OwnerFields:  []string{"owner", "assignee"},
		Accessors: map[string]Accessor{
			"live": {Name: "live", Where: "deleted_at IS NULL"},
		},
	})
	c.Register(&RecordType{
		Namespace:    "tracker",
		Name:         "Comment",
		Table:        "comments",
		ResourceType: "comment",
		OwnerFields:  []string{"author"},
		Accessors: map[string]Accessor{
			"live": {Name: "live", Where: "deleted_at IS NULL"},
		},
	})
	c.Register(&RecordType{
		Namespace:    "tracker",
		Name:         "Attachment",
		Table:        "attachments",
		ResourceType: "attachment",
		OwnerFields:  []string{"owner"},
	})
	return c
}
