package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/transplant/internal/db"
	"github.com/lherron/transplant/internal/testutil"
)

// setupTestEnv isolates config lookup, runs "init" and adds alice and bob.
// bob owns two tasks in a project owned by alice.
func setupTestEnv(t *testing.T) (*db.DB, string) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, v := range []string{
		"TRANSPLANT_CONFIG", "TRANSPLANT_ACCOUNT", "TRANSPLANT_DEBUG",
		"TRANSPLANT_SUCCESS_URL", "TRANSPLANT_FAILURE_URL",
		"TRANSPLANT_LOG_LEVEL", "TRANSPLANT_LOG_FORMAT", "TRANSPLANT_DB_PATH_FILE",
		"TRANSPLANT_WEBHOOK_URLS",
	} {
		t.Setenv(v, "")
	}
	oldCwd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldCwd) })
	if err := os.Chdir(home); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(home, "transplant.db")
	t.Setenv("TRANSPLANT_DB_PATH", dbPath)

	mustRun(t, "init")
	mustRun(t, "accounts", "add", "alice", "--name", "Alice")
	mustRun(t, "accounts", "add", "Bob")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	var alice, bob string
	database.QueryRow("SELECT uuid FROM accounts WHERE slug = 'alice'").Scan(&alice)
	database.QueryRow("SELECT uuid FROM accounts WHERE slug = 'bob'").Scan(&bob)
	project := testutil.CreateContainer(t, database, "portal", alice)
	testutil.CreateTask(t, database, project, "login", bob, "")
	testutil.CreateTask(t, database, project, "logout", bob, alice)

	return database, dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(args)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%v failed: %v\nOutput: %s", args, err, out)
	}
	return out
}

func uuidOf(t *testing.T, database *db.DB, slug string) string {
	t.Helper()
	var u string
	if err := database.QueryRow("SELECT uuid FROM accounts WHERE slug = ?", slug).Scan(&u); err != nil {
		t.Fatalf("Failed to find account %s: %v", slug, err)
	}
	return u
}

func TestInitAndAccounts(t *testing.T) {
	setupTestEnv(t)

	out := mustRun(t, "accounts", "ls", "--porcelain")
	for _, want := range []string{"A-00001\tadmin\tAdministrator\thuman\tyes", "A-00002\talice\tAlice", "A-00003\tbob"} {
		if !strings.Contains(out, want) {
			t.Errorf("accounts ls missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "init")
	if !strings.Contains(out, "already initialized") {
		t.Errorf("second init should not reseed:\n%s", out)
	}

	if _, err := run(t, "accounts", "show", "nobody"); ExitCode(err) != 3 {
		t.Errorf("expected exit code 3 for unknown account, got %v", err)
	}
}

func TestMergeCommand_RequiresConfirmation(t *testing.T) {
	database, _ := setupTestEnv(t)

	_, err := run(t, "merge", "bob", "--as", "alice")
	if ExitCode(err) != 2 || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if n := testutil.CountOwned(t, database, "tasks", "owner", uuidOf(t, database, "bob")); n != 2 {
		t.Errorf("bob should still own 2 tasks, got %d", n)
	}
}

func TestMergeCommand(t *testing.T) {
	database, _ := setupTestEnv(t)
	alice, bob := uuidOf(t, database, "alice"), uuidOf(t, database, "bob")

	out := mustRun(t, "merge", "bob", "--as", "alice", "--yes")
	for _, want := range []string{
		"Merged A-00003 (bob) into A-00002 (alice)",
		"tracker.Task.objects[owner] via merge.Default  2 reassigned",
		"Deactivated A-00003 (bob)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("merge output missing %q:\n%s", want, out)
		}
	}

	if n := testutil.CountOwned(t, database, "tasks", "owner", alice); n != 2 {
		t.Errorf("alice should own 2 tasks, got %d", n)
	}
	if testutil.IsActive(t, database, bob) {
		t.Error("bob should be inactive")
	}

	out = mustRun(t, "log")
	if !strings.Contains(out, "A-00003 -> A-00002 (5 operation(s), 2 record(s))") {
		t.Errorf("log missing merge summary:\n%s", out)
	}
	out = mustRun(t, "log", "--type", "task.reassigned")
	if !strings.Contains(out, "T-00001 owner:") {
		t.Errorf("log missing per-record events:\n%s", out)
	}

	if _, err := run(t, "merge", "alice", "--as", "bob", "--yes"); err == nil || !strings.Contains(err.Error(), "inactive") {
		t.Errorf("inactive account must not receive a merge, got %v", err)
	}
}

func TestMergeCommand_DryRunJSON(t *testing.T) {
	database, _ := setupTestEnv(t)

	out := mustRun(t, "merge", "bob", "--as", "alice", "--dry-run", "--diff", "--json")

	var got struct {
		Outcome string `json:"outcome"`
		Report  struct {
			DryRun bool   `json:"dry_run"`
			Diff   string `json:"diff"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if got.Outcome != "dry_run" || !got.Report.DryRun {
		t.Errorf("unexpected result %+v", got)
	}
	for _, want := range []string{"-tracker.Task T-00001 owner=A-00003", "+tracker.Task T-00002 owner=A-00002"} {
		if !strings.Contains(got.Report.Diff, want) {
			t.Errorf("diff missing %q:\n%s", want, got.Report.Diff)
		}
	}
	if strings.Contains(got.Report.Diff, "assignee") {
		t.Errorf("unchanged assignee leaked into diff:\n%s", got.Report.Diff)
	}

	if n := testutil.CountOwned(t, database, "tasks", "owner", uuidOf(t, database, "bob")); n != 2 {
		t.Errorf("dry run must not reassign, bob owns %d", n)
	}
}

func TestMergeCommand_FailureDispatch(t *testing.T) {
	database, dbPath := setupTestEnv(t)
	cfgPath := filepath.Join(filepath.Dir(dbPath), "config.yaml")
	cfg := `failure_url: /accounts/merge/failed
operations:
  - model: tracker.Task
    strategy: merge.Default
  - model: tracker.Task
    strategy: merge.Missing
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfgPath, "merge", "bob", "--as", "alice", "--yes", "--json")
	if ExitCode(err) != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	var got struct {
		Outcome string `json:"outcome"`
		Target  string `json:"target"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if got.Outcome != "redirect" || got.Target != "/accounts/merge/failed" || !strings.Contains(got.Error, "Missing") {
		t.Errorf("unexpected result %+v", got)
	}

	bob := uuidOf(t, database, "bob")
	if n := testutil.CountOwned(t, database, "tasks", "owner", bob); n != 2 {
		t.Errorf("failed merge must roll back, bob owns %d", n)
	}
	if !testutil.IsActive(t, database, bob) {
		t.Error("failed merge must leave bob active")
	}

	t.Setenv("TRANSPLANT_DEBUG", "true")
	if _, err := run(t, "--config", cfgPath, "merge", "bob", "--as", "alice", "--yes"); ExitCode(err) != 2 {
		t.Errorf("debug mode should propagate the configuration error, got %v", err)
	}
}

func TestMergeCommand_Webhooks(t *testing.T) {
	setupTestEnv(t)

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Setenv("TRANSPLANT_WEBHOOK_URLS", srv.URL+"/merged/{donor_id}")

	mustRun(t, "merge", "bob", "--as", "alice", "--dry-run")
	if len(paths) != 0 {
		t.Fatalf("dry run must not notify, got %v", paths)
	}

	mustRun(t, "merge", "bob", "--as", "alice", "--yes")
	if len(paths) != 1 || paths[0] != "/merged/A-00003" {
		t.Errorf("expected one notification for A-00003, got %v", paths)
	}
}

func TestOpsCommands(t *testing.T) {
	_, dbPath := setupTestEnv(t)

	out := mustRun(t, "ops", "ls")
	if !strings.Contains(out, "tracker.Comment") || !strings.Contains(out, "author") {
		t.Errorf("ops ls missing default operations:\n%s", out)
	}

	out = mustRun(t, "ops", "check")
	if !strings.Contains(out, "All 5 operation(s) resolve.") {
		t.Errorf("unexpected ops check output:\n%s", out)
	}

	out = mustRun(t, "ops", "catalog")
	if !strings.Contains(out, "tracker.Task") || !strings.Contains(out, "merge.Batch") {
		t.Errorf("unexpected catalog output:\n%s", out)
	}

	cfgPath := filepath.Join(filepath.Dir(dbPath), "bad.yaml")
	os.WriteFile(cfgPath, []byte("operations:\n  - model: tracker.Task\n    accessor: archived\n    strategy: merge.Batch\n"), 0644)
	out, err := run(t, "--config", cfgPath, "ops", "check")
	if ExitCode(err) != 2 || !strings.Contains(out, "✗ tracker.Task.archived[owner] via merge.Batch") {
		t.Errorf("expected unresolvable accessor, got %v:\n%s", err, out)
	}
}

func TestDoctorCommand(t *testing.T) {
	database, _ := setupTestEnv(t)

	out := mustRun(t, "doctor")
	if !strings.Contains(out, "All checks passed") {
		t.Errorf("expected healthy database:\n%s", out)
	}

	// An inactive account that still owns records is flagged.
	database.Exec("UPDATE accounts SET active = 0 WHERE slug = 'bob'")
	out = mustRun(t, "doctor", "--details")
	if !strings.Contains(out, "A-00003 still owns 2 tracker.Task record(s) via owner") {
		t.Errorf("expected inactive owner warning:\n%s", out)
	}

	// An explicit friendly ID leaves account_seq behind; --fix advances it.
	database.Exec("INSERT INTO accounts (uuid, id, slug, role) VALUES ('imported-uuid', 'A-00099', 'imported', 'human')")
	out, err := run(t, "doctor", "--details", "--fix")
	if ExitCode(err) != 1 {
		t.Fatalf("expected sequence drift error, got %v", err)
	}
	for _, want := range []string{"highest id A-00099", "Fixed sqlite_sequence drift for 1 table(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor --fix output missing %q:\n%s", want, out)
		}
	}
	mustRun(t, "doctor")
}
