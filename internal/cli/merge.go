package cli

import (
	"errors"
	"fmt"

	"github.com/lherron/transplant/internal/accounts"
	"github.com/lherron/transplant/internal/cli/appctx"
	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/merge"
	"github.com/lherron/transplant/internal/render"
	"github.com/lherron/transplant/internal/webhooks"
	"github.com/spf13/cobra"
)

type mergeOutput struct {
	Outcome merge.Outcome `json:"outcome"`
	Target  string        `json:"target,omitempty"`
	Report  *merge.Report `json:"report,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func newMergeCmd() *cobra.Command {
	var (
		yes     bool
		dryRun  bool
		diff    bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "merge <donor>",
		Short: "Merge a donor account into the receiving account",
		Long: `Merge reassigns every record owned by <donor> to the receiving account
(--as, TRANSPLANT_ACCOUNT, or default_account) using the configured
operations, then deactivates the donor. All operations run in a single
transaction: if any of them fails, nothing is changed.

The donor cannot be reactivated by this tool, so --yes is required unless
--dry-run is given.

Examples:
  transplant merge bob --as alice --yes
  transplant merge A-00007 --dry-run --diff`,
		Args: cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.WithAccount(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			if !yes && !dryRun {
				return exitError(2, fmt.Errorf("refusing to merge without --yes: the donor account will be deactivated"))
			}

			donor, err := accounts.NewResolver(app.DB.DB).Lookup(args[0])
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return exitError(3, err)
				}
				return exitError(1, err)
			}

			orch := merge.NewOrchestrator(app.Store, nil, merge.Policy{
				Debug:      app.Config.Debug,
				SuccessURL: app.Config.SuccessURL,
				FailureURL: app.Config.FailureURL,
			}, app.Logger)

			res, err := orch.PerformMergeWithOptions(cmd.Context(), app.Account, donor, app.Config.Operations, merge.Options{
				DryRun: dryRun,
				Diff:   diff,
			})
			if err != nil {
				if domain.IsConfigurationError(err, "") {
					return exitError(2, err)
				}
				return exitError(1, err)
			}

			if res.Outcome == merge.OutcomeSuccess && len(app.Config.WebhookURLs) > 0 {
				webhooks.NewDispatcher(app.Logger).Dispatch(cmd.Context(), app.Config.WebhookURLs, webhooks.NewPayload(res.Report))
			}

			r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Porcelain: jsonOut})
			if jsonOut {
				out := mergeOutput{Outcome: res.Outcome, Target: res.Target, Report: res.Report}
				if res.Cause != nil {
					out.Error = res.Cause.Error()
				}
				if err := r.RenderJSON(out); err != nil {
					return err
				}
			} else {
				r.RenderMergeResult(res)
			}

			if res.Outcome == merge.OutcomeRedirect {
				return exitError(1, fmt.Errorf("merge of %s rolled back", donor.Label()))
			}
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm that the donor account will be deactivated")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run every operation and roll back")
	cmd.Flags().BoolVar(&diff, "diff", false, "Show an ownership diff of the two accounts")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
