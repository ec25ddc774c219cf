// Package testutil builds migrated temporary databases and seeds them with
// accounts and owned records.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/lherron/transplant/internal/db"
)

// TempDB creates a temporary SQLite database with migrations applied.
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// CreateAccount inserts an active human account and returns its UUID.
func CreateAccount(t *testing.T, database *db.DB, slug string) string {
	t.Helper()
	id := uuid.NewString()
	if _, err := database.Exec(`INSERT INTO accounts (uuid, slug, role) VALUES (?, ?, 'human')`, id, slug); err != nil {
		t.Fatalf("Failed to create account %s: %v", slug, err)
	}
	return id
}

// CreateContainer inserts a container owned by owner and returns its UUID.
func CreateContainer(t *testing.T, database *db.DB, slug, owner string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := database.Exec(`INSERT INTO containers (uuid, slug, title, owner) VALUES (?, ?, ?, ?)`, id, slug, slug, owner)
	if err != nil {
		t.Fatalf("Failed to create container %s: %v", slug, err)
	}
	return id
}

// CreateTask inserts a task in project owned by owner. An empty assignee
// leaves the task unassigned.
func CreateTask(t *testing.T, database *db.DB, projectUUID, slug, owner, assignee string) string {
	t.Helper()
	id := uuid.NewString()
	var assigneeArg any
	if assignee != "" {
		assigneeArg = assignee
	}
	_, err := database.Exec(`
		INSERT INTO tasks (uuid, slug, title, project_uuid, owner, assignee)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, slug, slug, projectUUID, owner, assigneeArg)
	if err != nil {
		t.Fatalf("Failed to create task %s: %v", slug, err)
	}
	return id
}

// CreateComment inserts a comment on task written by author.
func CreateComment(t *testing.T, database *db.DB, taskUUID, author, body string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := database.Exec(`INSERT INTO comments (uuid, task_uuid, author, body) VALUES (?, ?, ?, ?)`, id, taskUUID, author, body)
	if err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}
	return id
}

// CreateAttachment inserts an attachment on task owned by owner.
func CreateAttachment(t *testing.T, database *db.DB, taskUUID, owner, filename string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := database.Exec(`INSERT INTO attachments (uuid, task_uuid, filename, owner) VALUES (?, ?, ?, ?)`, id, taskUUID, filename, owner)
	if err != nil {
		t.Fatalf("Failed to create attachment %s: %v", filename, err)
	}
	return id
}

// OwnerOf returns the value of field on the row identified by uuid.
func OwnerOf(t *testing.T, database *db.DB, table, field, rowUUID string) string {
	t.Helper()
	var owner *string
	if err := database.QueryRow("SELECT "+field+" FROM "+table+" WHERE uuid = ?", rowUUID).Scan(&owner); err != nil {
		t.Fatalf("Failed to read %s.%s: %v", table, field, err)
	}
	if owner == nil {
		return ""
	}
	return *owner
}

// CountOwned counts rows in table whose field equals owner.
func CountOwned(t *testing.T, database *db.DB, table, field, owner string) int {
	t.Helper()
	var n int
	if err := database.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE "+field+" = ?", owner).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s.%s: %v", table, field, err)
	}
	return n
}

// IsActive reports the active flag of an account.
func IsActive(t *testing.T, database *db.DB, accountUUID string) bool {
	t.Helper()
	var active int
	if err := database.QueryRow("SELECT active FROM accounts WHERE uuid = ?", accountUUID).Scan(&active); err != nil {
		t.Fatalf("Failed to read account %s: %v", accountUUID, err)
	}
	return active == 1
}

// ETagOf returns the etag of the row identified by uuid.
func ETagOf(t *testing.T, database *db.DB, table, rowUUID string) int64 {
	t.Helper()
	var etag int64
	if err := database.QueryRow("SELECT etag FROM "+table+" WHERE uuid = ?", rowUUID).Scan(&etag); err != nil {
		t.Fatalf("Failed to read %s etag: %v", table, err)
	}
	return etag
}

// CountEvents counts event_log rows of the given type.
func CountEvents(t *testing.T, database *db.DB, eventType string) int {
	t.Helper()
	var n int
	if err := database.QueryRow("SELECT COUNT(*) FROM event_log WHERE event_type = ?", eventType).Scan(&n); err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	return n
}
