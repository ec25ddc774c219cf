package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lherron/transplant/internal/config"
	"github.com/lherron/transplant/internal/db"
	"github.com/lherron/transplant/internal/id"
	"github.com/lherron/transplant/internal/merge"
	"github.com/lherron/transplant/internal/render"
	"github.com/lherron/transplant/internal/store"
	"github.com/spf13/cobra"
)

type checkResult struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type doctorReport struct {
	DBPath        string        `json:"db_path"`
	Checks        []checkResult `json:"checks"`
	Warnings      int           `json:"warnings"`
	Errors        int           `json:"errors"`
	OverallStatus string        `json:"overall_status"`
}

func newDoctorCmd() *cobra.Command {
	var (
		jsonOut bool
		fix     bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check database health and merge configuration",
		Long: `Performs health checks on the database file, schema, friendly-ID
sequences, leftover ownership of inactive accounts, and the configured
merge operations. Use --fix to repair sequence drift.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPath(cmd.Flag("config").Value.String())
			if err != nil {
				return exitError(1, fmt.Errorf("failed to load config: %w", err))
			}
			if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
				cfg.DBPath = dbPath
			}

			report := &doctorReport{DBPath: cfg.DBPath, OverallStatus: "ok"}
			report.Checks = append(report.Checks, checkDatabaseFile(cfg.DBPath)...)

			var database *db.DB
			if len(report.Checks) > 0 && report.Checks[0].Status == "ok" {
				database, err = db.Open(cfg.DBPath)
				if err != nil {
					report.Checks = append(report.Checks, checkResult{
						Name:    "database_open",
						Status:  "error",
						Message: fmt.Sprintf("Failed to open database: %v", err),
					})
				} else {
					defer database.Close()
					report.Checks = append(report.Checks, checkDatabasePragmas(database)...)
					report.Checks = append(report.Checks, checkSchema(database)...)
					report.Checks = append(report.Checks, checkSequenceDrift(cmd.Context(), database)...)
					report.Checks = append(report.Checks, checkInactiveOwners(database)...)
					report.Checks = append(report.Checks, checkOperations(cmd.Context(), database, cfg)...)
				}
			}

			for _, check := range report.Checks {
				switch check.Status {
				case "warning":
					report.Warnings++
				case "error":
					report.Errors++
					report.OverallStatus = "error"
				}
			}
			if report.Warnings > 0 && report.OverallStatus == "ok" {
				report.OverallStatus = "warning"
			}

			if jsonOut {
				if err := render.NewRenderer(cmd.OutOrStdout(), render.Options{}).RenderJSON(report); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd.OutOrStdout(), report, verbose)
			}

			if fix && database != nil {
				applyFixes(cmd.Context(), cmd.OutOrStdout(), database)
			}

			if report.Errors > 0 {
				return exitError(1, fmt.Errorf("doctor found %d error(s)", report.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&fix, "fix", false, "Auto-repair issues")
	cmd.Flags().BoolVar(&verbose, "details", false, "Show check details")
	return cmd
}

func checkDatabaseFile(dbPath string) []checkResult {
	info, err := os.Stat(dbPath)
	if err != nil {
		return []checkResult{{
			Name:    "db_file_exists",
			Status:  "error",
			Message: fmt.Sprintf("Database file not found: %s", dbPath),
			Details: []string{"Run 'transplant init' to create it"},
		}}
	}

	results := []checkResult{{
		Name:    "db_file_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Database file: %s (%.1f MB)", dbPath, float64(info.Size())/(1024*1024)),
	}}

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0)
	if err != nil {
		return append(results, checkResult{
			Name:    "db_file_permissions",
			Status:  "error",
			Message: fmt.Sprintf("Database file not writable: %v", err),
		})
	}
	f.Close()
	return append(results, checkResult{
		Name:    "db_file_permissions",
		Status:  "ok",
		Message: "Database file is readable and writable",
	})
}

func checkDatabasePragmas(database *db.DB) []checkResult {
	var results []checkResult

	var journalMode string
	database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if journalMode == "wal" {
		results = append(results, checkResult{Name: "wal_mode", Status: "ok", Message: "WAL mode enabled"})
	} else {
		results = append(results, checkResult{
			Name:    "wal_mode",
			Status:  "warning",
			Message: fmt.Sprintf("WAL mode not enabled (current: %s)", journalMode),
		})
	}

	var foreignKeys int
	database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	if foreignKeys == 1 {
		results = append(results, checkResult{Name: "foreign_keys", Status: "ok", Message: "Foreign keys enabled"})
	} else {
		results = append(results, checkResult{
			Name:    "foreign_keys",
			Status:  "error",
			Message: "Foreign keys not enabled",
			Details: []string{"Owner references to missing accounts are not rejected"},
		})
	}

	var integrity string
	database.QueryRow("PRAGMA integrity_check").Scan(&integrity)
	if integrity == "ok" {
		results = append(results, checkResult{Name: "integrity_check", Status: "ok", Message: "Database integrity check passed"})
	} else {
		results = append(results, checkResult{
			Name:    "integrity_check",
			Status:  "error",
			Message: fmt.Sprintf("Database integrity check failed: %s", integrity),
		})
	}

	return results
}

func checkSchema(database *db.DB) []checkResult {
	if err := database.RequiresMigrationError(); err != nil {
		return []checkResult{{
			Name:    "schema_migrations",
			Status:  "error",
			Message: "Pending migrations",
			Details: []string{err.Error()},
		}}
	}
	return []checkResult{{Name: "schema_migrations", Status: "ok", Message: "All migrations applied"}}
}

func checkSequenceDrift(ctx context.Context, database *db.DB) []checkResult {
	drifts, err := db.CheckSequences(ctx, database, db.Sequences())
	if err != nil {
		return []checkResult{{
			Name:    "sequence_drift",
			Status:  "error",
			Message: fmt.Sprintf("Failed to check sqlite_sequence drift: %v", err),
		}}
	}
	if len(drifts) == 0 {
		return []checkResult{{Name: "sequence_drift", Status: "ok", Message: "All sqlite_sequence values are in sync"}}
	}

	details := make([]string, 0, len(drifts))
	for _, drift := range drifts {
		details = append(details, fmt.Sprintf("%s (table %s): sqlite_sequence=%d, highest id %s", drift.Name, drift.Table, drift.Current, id.Format(drift.Type, drift.MaxID)))
	}
	return []checkResult{{
		Name:    "sequence_drift",
		Status:  "error",
		Message: fmt.Sprintf("Detected sqlite_sequence drift (%d table(s))", len(drifts)),
		Details: details,
	}}
}

// checkInactiveOwners warns about deactivated accounts that still own
// records, which happens when a merge ran with an incomplete operation list.
func checkInactiveOwners(database *db.DB) []checkResult {
	var details []string
	for _, rt := range store.DefaultCatalog().Types() {
		for _, field := range rt.OwnerFields {
			rows, err := database.Query(fmt.Sprintf(`
				SELECT a.id, COUNT(*) FROM %s r JOIN accounts a ON a.uuid = r.%s
				WHERE a.active = 0 GROUP BY a.id ORDER BY a.id
			`, rt.Table, field))
			if err != nil {
				return []checkResult{{
					Name:    "inactive_owners",
					Status:  "error",
					Message: fmt.Sprintf("Failed to check %s.%s: %v", rt.Locator(), field, err),
				}}
			}
			for rows.Next() {
				var accountID string
				var n int
				if err := rows.Scan(&accountID, &n); err == nil {
					details = append(details, fmt.Sprintf("%s still owns %d %s record(s) via %s", accountID, n, rt.Locator(), field))
				}
			}
			rows.Close()
		}
	}

	if len(details) == 0 {
		return []checkResult{{Name: "inactive_owners", Status: "ok", Message: "No inactive account owns records"}}
	}
	return []checkResult{{
		Name:    "inactive_owners",
		Status:  "warning",
		Message: fmt.Sprintf("Inactive accounts still own records (%d owner field(s))", len(details)),
		Details: details,
	}}
}

func checkOperations(ctx context.Context, database *db.DB, cfg *config.Config) []checkResult {
	if len(cfg.Operations) == 0 {
		return []checkResult{{
			Name:    "operations",
			Status:  "warning",
			Message: "No merge operations configured; a merge would change nothing",
		}}
	}

	st := store.New(database, nil)
	results, err := merge.NewResolver(st.Catalog(), nil).Validate(ctx, st, cfg.Operations)
	if err != nil {
		return []checkResult{{Name: "operations", Status: "error", Message: fmt.Sprintf("Failed to resolve operations: %v", err)}}
	}

	var details []string
	for _, res := range results {
		if res.Err != nil {
			details = append(details, fmt.Sprintf("%s: %v", res.Descriptor, res.Err))
		}
	}
	if len(details) > 0 {
		return []checkResult{{
			Name:    "operations",
			Status:  "error",
			Message: fmt.Sprintf("%d of %d operation(s) cannot be resolved", len(details), len(results)),
			Details: details,
		}}
	}
	return []checkResult{{
		Name:    "operations",
		Status:  "ok",
		Message: fmt.Sprintf("All %d configured operation(s) resolve", len(results)),
	}}
}

func applyFixes(ctx context.Context, out io.Writer, database *db.DB) {
	fmt.Fprintln(out, "\n--fix results")
	if drifts, err := database.RepairSequences(ctx, db.Sequences()); err != nil {
		fmt.Fprintf(out, "Sequence repair failed: %v\n", err)
	} else if len(drifts) > 0 {
		fmt.Fprintf(out, "Fixed sqlite_sequence drift for %d table(s)\n", len(drifts))
	} else {
		fmt.Fprintln(out, "No sqlite_sequence drift detected")
	}
}

func printDoctorReport(out io.Writer, report *doctorReport, details bool) {
	fmt.Fprintf(out, "Database: %s\n\n", report.DBPath)

	for _, check := range report.Checks {
		icon := "✓"
		switch check.Status {
		case "warning":
			icon = "⚠"
		case "error":
			icon = "✗"
		}
		fmt.Fprintf(out, "  %s %s\n", icon, check.Message)
		if details {
			for _, detail := range check.Details {
				fmt.Fprintf(out, "      %s\n", detail)
			}
		}
	}
	fmt.Fprintln(out)

	switch {
	case report.Errors > 0:
		fmt.Fprintf(out, "Summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	case report.Warnings > 0:
		fmt.Fprintf(out, "Summary: %d warning(s)\n", report.Warnings)
	default:
		fmt.Fprintln(out, "Summary: All checks passed ✓")
	}
	if !details && (report.Warnings > 0 || report.Errors > 0) {
		fmt.Fprintln(out, "\nRun with --details for more information")
	}
}
