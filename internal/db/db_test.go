package db

import (
	"path/filepath"
	"testing"
)

func TestMigrateIsIdempotent(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	applied, err := database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("first migrate failed: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected migrations to be applied on a fresh database")
	}

	applied, err = database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected no migrations on second run, got %v", applied)
	}

	_, pending, err := database.MigrationStatus()
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending migrations, got %v", pending)
	}
}

func TestInsertTriggersAssignFriendlyIDs(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	for i, slug := range []string{"alice", "bob"} {
		uuid := []string{"account-uuid-1", "account-uuid-2"}[i]
		if _, err := database.Exec(`INSERT INTO accounts (uuid, slug) VALUES (?, ?)`, uuid, slug); err != nil {
			t.Fatalf("failed to insert account: %v", err)
		}
	}

	var id string
	if err := database.QueryRow("SELECT id FROM accounts WHERE uuid = 'account-uuid-2'").Scan(&id); err != nil {
		t.Fatalf("failed to read account id: %v", err)
	}
	if id != "A-00002" {
		t.Errorf("expected A-00002, got %q", id)
	}

	var active int
	if err := database.QueryRow("SELECT active FROM accounts WHERE uuid = 'account-uuid-1'").Scan(&active); err != nil {
		t.Fatalf("failed to read active flag: %v", err)
	}
	if active != 1 {
		t.Errorf("expected new accounts to be active, got %d", active)
	}
}

func TestInsertTriggersAssignFriendlyIDsForEveryRecordType(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		t.Fatalf("baseline migration: %v", err)
	}

	inserts := []string{
		`INSERT INTO accounts (uuid, slug) VALUES ('a-1', 'alice')`,
		`INSERT INTO containers (uuid, slug, title, owner) VALUES ('p-1', 'portal', 'Portal', 'a-1')`,
		`INSERT INTO tasks (uuid, slug, title, project_uuid, owner) VALUES ('t-1', 'login', 'Login', 'p-1', 'a-1')`,
		`INSERT INTO tasks (uuid, slug, title, project_uuid, owner) VALUES ('t-2', 'logout', 'Logout', 'p-1', 'a-1')`,
		`INSERT INTO comments (uuid, task_uuid, author, body) VALUES ('c-1', 't-1', 'a-1', 'lgtm')`,
		`INSERT INTO attachments (uuid, task_uuid, filename, owner) VALUES ('f-1', 't-1', 'spec.pdf', 'a-1')`,
	}
	for _, q := range inserts {
		if _, err := database.Exec(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}

	tests := []struct {
		table string
		uuid  string
		want  string
	}{
		{"accounts", "a-1", "A-00001"},
		{"containers", "p-1", "P-00001"},
		{"tasks", "t-2", "T-00002"},
		{"comments", "c-1", "C-00001"},
		{"attachments", "f-1", "ATT-00001"},
	}
	for _, tt := range tests {
		var id string
		if err := database.QueryRow("SELECT id FROM "+tt.table+" WHERE uuid = ?", tt.uuid).Scan(&id); err != nil {
			t.Fatalf("failed to read %s id: %v", tt.table, err)
		}
		if id != tt.want {
			t.Errorf("%s id = %q, want %q", tt.table, id, tt.want)
		}
	}
}
