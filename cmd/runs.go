package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/social-cli/internal/model"
	"github.com/sells-group/social-cli/internal/output"
	"github.com/sells-group/social-cli/internal/slug"
	"github.com/sells-group/social-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect scrape run history",
	Long:  "Commands for listing and viewing recorded scrape runs. Requires store.driver sqlite or postgres.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scrape runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initRunsStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		competitor, _ := cmd.Flags().GetString("competitor")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		}
		if competitor != "" {
			filter.CompetitorSlug = slug.Make(competitor)
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its per-URL outcomes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initRunsStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		fetches, err := st.ListFetches(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		return writeRunDetail(cmd.OutOrStdout(), run, fetches)
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, cancelled)")
	runsListCmd.Flags().String("competitor", "", "filter by competitor name or slug")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func initRunsStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	return openStore(ctx, cfg.Store, cfg.Scrape.OutDir)
}

// runDetail is the JSON shape printed by runs show.
type runDetail struct {
	*model.Run
	Fetches []model.FetchOutcome `json:"fetches"`
}

func writeRunDetail(out io.Writer, run *model.Run, fetches []model.FetchOutcome) error {
	if fetches == nil {
		fetches = []model.FetchOutcome{}
	}
	data, err := output.MarshalASCII(runDetail{Run: run, Fetches: fetches}, "  ")
	if err != nil {
		return eris.Wrap(err, "runs show: encode")
	}
	_, err = out.Write(data)
	return err
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPETITOR\tSTATUS\tOK\tFAILED\tTOTAL\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----------\t------\t--\t------\t-----\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		competitor := r.Competitor
		if competitor == "" {
			competitor = "-"
		}
		if len(competitor) > 30 {
			competitor = competitor[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			competitor,
			r.Status,
			r.Succeeded,
			r.Failed,
			r.Total,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
