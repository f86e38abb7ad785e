package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pulse-cli/internal/etl"
)

var etlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show warehouse load history",
	Long:  "Displays the load history for all datasets from pulse.load_log. Postgres only.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := pulsePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		ll := etl.NewLoadLog(pool)
		entries, err := ll.ListAll(ctx)
		if err != nil {
			return eris.Wrap(err, "etl status")
		}

		if len(entries) == 0 {
			zap.L().Info("no load entries found, run 'etl load' to load a snapshot")
			return nil
		}

		formatLoadEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	etlCmd.AddCommand(etlStatusCmd)
}

// formatLoadEntries writes a tabular representation of load entries to w.
func formatLoadEntries(out io.Writer, entries []etl.LoadEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRUN\tDATASET\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t---\t-------\t------\t-------\t--------\t----\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			d := e.CompletedAt.Sub(e.StartedAt).Round(time.Second)
			dur = d.String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			shortRunID(e.RunID),
			e.Dataset,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsLoaded,
			errMsg,
		)
	}
	_ = w.Flush()
}

// shortRunID trims a run UUID to its first group for display.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
