package cli

import (
	"fmt"
	"strings"

	"github.com/lherron/transplant/internal/cli/appctx"
	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/events"
	"github.com/lherron/transplant/internal/render"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newLogCmd() *cobra.Command {
	var (
		eventType string
		all       bool
		limit     int
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show merge history from the event log",
		Long: `Show recent events from the event log, newest first. By default only
account.merged events are listed.

Examples:
  transplant log                          # Recent merges
  transplant log --type task.reassigned   # Per-record reassignments
  transplant log --all --limit 100        # Everything`,
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			if all {
				eventType = ""
			}
			evs, err := events.List(app.DB.DB, eventType, limit)
			if err != nil {
				return exitError(1, err)
			}

			if jsonOut {
				return render.NewRenderer(cmd.OutOrStdout(), render.Options{}).RenderJSON(evs)
			}

			out := cmd.OutOrStdout()
			if len(evs) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}
			for _, ev := range evs {
				fmt.Fprintf(out, "#%d  %s  %-20s  %s\n", ev.ID, ev.Timestamp.Format("2006-01-02 15:04:05"), ev.EventType, summarizeEvent(ev))
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&eventType, "type", events.TypeAccountMerged, "Event type to list")
	cmd.Flags().BoolVar(&all, "all", false, "List every event type")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// summarizeEvent renders a one-line description of an event payload.
func summarizeEvent(ev domain.Event) string {
	if ev.Payload == nil {
		return ""
	}
	payload := gjson.Parse(*ev.Payload)

	switch {
	case ev.EventType == events.TypeAccountMerged:
		var records int64
		payload.Get("operations.#.reassigned").ForEach(func(_, v gjson.Result) bool {
			records += v.Int()
			return true
		})
		return fmt.Sprintf("%s -> %s (%d operation(s), %d record(s))",
			payload.Get("donor_id").String(),
			payload.Get("receiver_id").String(),
			payload.Get("operations.#").Int(),
			records)
	case strings.HasSuffix(ev.EventType, ".reassigned"):
		return fmt.Sprintf("%s %s: %s -> %s",
			payload.Get("id").String(),
			payload.Get("field").String(),
			payload.Get("from").String(),
			payload.Get("to").String())
	case ev.EventType == events.TypeAccountCreated:
		return fmt.Sprintf("%s (%s)", payload.Get("slug").String(), payload.Get("role").String())
	default:
		var parts []string
		payload.ForEach(func(k, v gjson.Result) bool {
			parts = append(parts, k.String()+"="+v.String())
			return true
		})
		return strings.Join(parts, " ")
	}
}
