package cli

import (
	"fmt"

	"github.com/lherron/transplant/internal/render"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut {
				return render.NewRenderer(cmd.OutOrStdout(), render.Options{}).RenderJSON(map[string]any{
					"binary":     "transplant",
					"version":    Version,
					"commit":     GitCommit,
					"build_date": BuildDate,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "transplant version %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", GitCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", BuildDate)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
