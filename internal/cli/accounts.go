package cli

import (
	"fmt"

	"github.com/lherron/transplant/internal/accounts"
	"github.com/lherron/transplant/internal/cli/appctx"
	"github.com/lherron/transplant/internal/slug"
	"github.com/lherron/transplant/internal/render"
	"github.com/spf13/cobra"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "List and manage accounts",
	}

	var (
		lsJSON      bool
		lsPorcelain bool
	)
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List all accounts",
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			list, err := accounts.NewResolver(app.DB.DB).List()
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Porcelain: lsPorcelain})
			if lsJSON {
				return r.RenderJSON(list)
			}
			return r.RenderAccounts(list)
		}),
	}
	ls.Flags().BoolVar(&lsJSON, "json", false, "Output as JSON")
	ls.Flags().BoolVar(&lsPorcelain, "porcelain", false, "Machine-readable output")

	var (
		addName string
		addRole string
	)
	add := &cobra.Command{
		Use:   "add <slug>",
		Short: "Create a new account",
		Long:  `Creates a new account with the given slug. The slug will be normalized to lowercase [a-z0-9-].`,
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			normalized, err := slug.Normalize(args[0])
			if err != nil {
				return exitError(2, fmt.Errorf("invalid slug: %w", err))
			}
			account, err := accounts.NewResolver(app.DB.DB).Create(normalized, addName, addRole)
			if err != nil {
				return exitError(2, fmt.Errorf("failed to create account: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", account.Slug, account.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&addName, "name", "", "Display name for the account")
	add.Flags().StringVar(&addRole, "role", "human", "Account role (human, agent, system)")

	var showJSON bool
	show := &cobra.Command{
		Use:   "show <account>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			account, err := accounts.NewResolver(app.DB.DB).Lookup(args[0])
			if err != nil {
				return exitError(3, err)
			}
			r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatYAML})
			if showJSON {
				return r.RenderJSON(account)
			}
			return r.RenderYAML(account)
		}),
	}
	show.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	cmd.AddCommand(ls, add, show)
	return cmd
}
