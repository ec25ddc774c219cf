package cli

import (
	"fmt"
	"io"

	"github.com/lherron/transplant/internal/config"
	"github.com/lherron/transplant/internal/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var (
		dryRun bool
		status bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run any pending database migrations",
		Long: `Migrate applies any pending SQL migrations to the database.

Migrations are embedded in the transplant binary and tracked via the
schema_migrations table. Each migration file is applied exactly once, so
this command is safe to run repeatedly.

Use --dry-run to see which migrations would be applied without running them.
Use --status to show the current migration status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPath(cmd.Flag("config").Value.String())
			if err != nil {
				return exitError(1, fmt.Errorf("failed to load config: %w", err))
			}
			if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
				cfg.DBPath = dbPath
			}
			if cfg.DBPath == "" {
				return exitError(2, fmt.Errorf("database path not specified (use --db flag or set TRANSPLANT_DB_PATH)"))
			}

			database, err := db.Open(cfg.DBPath)
			if err != nil {
				return exitError(1, fmt.Errorf("failed to open database: %w", err))
			}
			defer database.Close()

			out := cmd.OutOrStdout()
			switch {
			case status:
				return showMigrationStatus(out, database)
			case dryRun:
				return showPendingMigrations(out, database)
			}

			applied, err := database.MigrateWithInfo()
			if err != nil {
				return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "Database is up to date. No migrations to apply.")
				return nil
			}
			for _, m := range applied {
				fmt.Fprintf(out, "✓ Applied migration: %s\n", m)
			}
			fmt.Fprintf(out, "\nApplied %d migration(s).\n", len(applied))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show which migrations would be applied without running them")
	cmd.Flags().BoolVar(&status, "status", false, "Show current migration status")
	return cmd
}

func showMigrationStatus(out io.Writer, database *db.DB) error {
	applied, pending, err := database.MigrationStatus()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to get migration status: %w", err))
	}

	if len(applied) == 0 && len(pending) == 0 {
		fmt.Fprintln(out, "No migrations found.")
		return nil
	}

	if len(applied) > 0 {
		fmt.Fprintln(out, "Applied migrations:")
		for _, m := range applied {
			fmt.Fprintf(out, "  ✓ %s\n", m)
		}
	}
	if len(pending) > 0 {
		if len(applied) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, "Pending migrations:")
		for _, m := range pending {
			fmt.Fprintf(out, "  ○ %s\n", m)
		}
	}
	return nil
}

func showPendingMigrations(out io.Writer, database *db.DB) error {
	_, pending, err := database.MigrationStatus()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to get migration status: %w", err))
	}

	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending migrations. Database is up to date.")
		return nil
	}

	fmt.Fprintln(out, "Pending migrations (would be applied):")
	for _, m := range pending {
		fmt.Fprintf(out, "  ○ %s\n", m)
	}
	fmt.Fprintf(out, "\nTotal: %d migration(s) would be applied.\n", len(pending))
	return nil
}
