package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the transplant command tree. Each call returns fresh
// commands with their own flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "transplant",
		Short: "Merge tracker accounts by reassigning everything one owns to another",
		Long: `transplant merges a donor account into a receiving account. Every record
the donor owns (containers, tasks, comments, attachments) is reassigned to
the receiver and the donor is deactivated, all inside one transaction.

Which record types and owner fields are reassigned, and by which strategy,
is configured as an ordered list of operations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("db", "", "Path to database file (overrides TRANSPLANT_DB_PATH)")
	root.PersistentFlags().String("as", "", "Receiving account (slug, friendly ID, or UUID)")
	root.PersistentFlags().String("config", "", "Config file (overrides TRANSPLANT_CONFIG)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newInitCmd(),
		newMigrateCmd(),
		newAccountsCmd(),
		newMergeCmd(),
		newOpsCmd(),
		newLogCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
