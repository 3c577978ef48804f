package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/output"
	"github.com/blackwell-systems/usagelens/internal/quality"
)

var cleanupDryRun bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Repair the session store",
	Long: `Delete redundant rows found by the quality audit. Each cleanup runs as
a single transaction and is safe to repeat.

Examples:
  usagelens cleanup duplicates            # keep the newest row per session ID
  usagelens cleanup orphans               # drop metrics whose session is gone
  usagelens cleanup duplicates --dry-run  # only report what would be deleted`,
}

var cleanupDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Keep only the most recently created row for each session ID",
	Args:  cobra.NoArgs,
	RunE: cleanupRun(
		func(c quality.Counts) int64 { return c.RedundantRows },
		(*quality.Cleaner).DeduplicateSessions,
	),
}

var cleanupOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Delete metrics rows that reference no session",
	Args:  cobra.NoArgs,
	RunE: cleanupRun(
		func(c quality.Counts) int64 { return c.OrphanedMetrics },
		(*quality.Cleaner).RemoveOrphanedMetrics,
	),
}

func init() {
	cleanupCmd.PersistentFlags().BoolVar(&cleanupDryRun, "dry-run", false, "Report the rows that would be deleted without deleting them")
	cleanupCmd.AddCommand(cleanupDuplicatesCmd, cleanupOrphansCmd)
	rootCmd.AddCommand(cleanupCmd)
}

// cleanupRun runs op, or with --dry-run reports the audit count it would
// delete.
func cleanupRun(pending func(quality.Counts) int64, op func(*quality.Cleaner, context.Context) (quality.Result, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		w := cmd.OutOrStdout()

		if cleanupDryRun {
			r, err := env.auditor.Audit(cmd.Context())
			if err != nil {
				return err
			}
			n := pending(r.Counts)
			if flagJSON {
				return writeJSON(w, struct {
					DryRun          bool  `json:"dryRun"`
					AffectedRecords int64 `json:"affectedRecords"`
				}{true, n})
			}
			fmt.Fprintf(w, " %s %d rows would be deleted\n", output.StyleWarning.Render("dry run:"), n)
			return nil
		}

		res, err := op(env.cleaner, cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(w, res)
		}
		style := output.StyleMuted
		if res.DeletedRecords > 0 {
			style = output.StyleSuccess
		}
		fmt.Fprintf(w, " %s\n", style.Render(res.Message))
		return nil
	}
}
