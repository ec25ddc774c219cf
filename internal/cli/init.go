package cli

import (
	"fmt"
	"os"

	"github.com/lherron/transplant/internal/accounts"
	"github.com/lherron/transplant/internal/config"
	"github.com/lherron/transplant/internal/db"
	"github.com/lherron/transplant/internal/slug"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		accountSlug string
		accountName string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the transplant database",
		Long: `Initialize creates the SQLite database, runs migrations, and seeds a
default administrator account on a new database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPath(cmd.Flag("config").Value.String())
			if err != nil {
				return exitError(1, fmt.Errorf("failed to load config: %w", err))
			}
			if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
				cfg.DBPath = dbPath
			}
			return runInit(cmd, cfg.DBPath, accountSlug, accountName)
		},
	}

	cmd.Flags().StringVar(&accountSlug, "account-slug", "admin", "Slug for the default account")
	cmd.Flags().StringVar(&accountName, "account-name", "Administrator", "Display name for the default account")
	return cmd
}

func runInit(cmd *cobra.Command, dbPath, accountSlug, accountName string) error {
	dbExists := false
	if _, err := os.Stat(dbPath); err == nil {
		dbExists = true
	}

	// Open database (creates file if it doesn't exist)
	database, err := db.Open(dbPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	out := cmd.OutOrStdout()
	if dbExists {
		fmt.Fprintf(out, "✓ Database already initialized at %s\n", dbPath)
		fmt.Fprintf(out, "✓ Migrations applied\n")
		return nil
	}

	normalized, err := slug.Normalize(accountSlug)
	if err != nil {
		return exitError(2, fmt.Errorf("invalid account slug: %w", err))
	}
	account, err := accounts.NewResolver(database.DB).Create(normalized, accountName, "human")
	if err != nil {
		return exitError(1, fmt.Errorf("failed to create default account: %w", err))
	}

	fmt.Fprintf(out, "✓ Initialized new database at %s\n", dbPath)
	fmt.Fprintf(out, "✓ Seeded default account: %s (%s)\n", account.Slug, account.ID)
	return nil
}
