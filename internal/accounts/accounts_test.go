package accounts

import (
	"errors"
	"testing"

	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/testutil"
)

func TestResolver_CreateAndLookup(t *testing.T) {
	database, _ := testutil.TempDB(t)
	r := NewResolver(database.DB)

	created, err := r.Create("alice", "Alice Liddell", "human")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != "A-00001" {
		t.Errorf("expected friendly ID A-00001, got %q", created.ID)
	}
	if !created.Active {
		t.Error("new accounts should be active")
	}
	if created.DisplayName == nil || *created.DisplayName != "Alice Liddell" {
		t.Errorf("unexpected display name %v", created.DisplayName)
	}

	for _, ident := range []string{"alice", "Alice", "A-00001", created.UUID} {
		got, err := r.Lookup(ident)
		if err != nil {
			t.Errorf("Lookup(%q) failed: %v", ident, err)
			continue
		}
		if got.UUID != created.UUID {
			t.Errorf("Lookup(%q) = %s, want %s", ident, got.UUID, created.UUID)
		}
	}

	if n := testutil.CountEvents(t, database, "account.created"); n != 1 {
		t.Errorf("expected 1 account.created event, got %d", n)
	}
}

func TestResolver_LookupMissing(t *testing.T) {
	database, _ := testutil.TempDB(t)
	r := NewResolver(database.DB)

	if _, err := r.Resolve("nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Resolve("A-00099"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown friendly ID, got %v", err)
	}
	if _, err := r.Resolve("   "); err == nil {
		t.Error("expected error for blank identifier")
	}
}

func TestResolver_CreateValidates(t *testing.T) {
	database, _ := testutil.TempDB(t)
	r := NewResolver(database.DB)

	if _, err := r.Create("Not A Slug", "", "human"); err == nil {
		t.Error("expected error for unnormalized slug")
	}
	if _, err := r.Create("bob", "", "robot"); err == nil {
		t.Error("expected error for invalid role")
	}
	if _, err := r.Create("bob", "", "agent"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := r.Create("bob", "", "agent"); err == nil {
		t.Error("expected error for duplicate slug")
	}
}

func TestResolver_List(t *testing.T) {
	database, _ := testutil.TempDB(t)
	testutil.CreateAccount(t, database, "zed")
	testutil.CreateAccount(t, database, "amy")

	list, err := NewResolver(database.DB).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(list))
	}
	if list[0].Slug != "zed" || list[1].Slug != "amy" {
		t.Errorf("expected accounts ordered by friendly ID, got %s, %s", list[0].Slug, list[1].Slug)
	}
}
