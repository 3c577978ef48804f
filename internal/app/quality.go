package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/output"
	"github.com/blackwell-systems/usagelens/internal/quality"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Audit the session store for duplicates, gaps and invalid values",
	Long: `Run a data quality audit over every stored session: duplicate session
IDs, orphaned metrics, missing fields and values that violate session
invariants. Prints a completeness score, a letter grade and recommendations.

Filters do not apply; the audit always covers the whole store.`,
	Args: cobra.NoArgs,
	RunE: runQuality,
}

func init() {
	rootCmd.AddCommand(qualityCmd)
}

func runQuality(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	r, err := env.auditor.Audit(cmd.Context())
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	renderReport(cmd.OutOrStdout(), r)
	return nil
}

func renderReport(w io.Writer, r quality.Report) {
	fmt.Fprintln(w, output.Section("Data Quality"))
	fmt.Fprintf(w, " %s  %s\n", output.ScoreBar(float64(r.CompletenessScore), 20), output.GradeBadge(r.Grade))

	fmt.Fprintln(w, output.Section("Counts"))
	count := func(label string, n int64) {
		fmt.Fprintln(w, output.KeyValue(label, strconv.FormatInt(n, 10)))
	}
	count("Sessions:", r.Counts.TotalSessions)
	count("Complete sessions:", r.Counts.CompleteSessions)
	count("Duplicate groups:", r.Counts.DuplicateSessions)
	count("Redundant rows:", r.Counts.RedundantRows)
	count("Orphaned metrics:", r.Counts.OrphanedMetrics)
	count("Metrics w/o messages:", r.Counts.MetricsWithoutMessages)

	fmt.Fprintln(w, output.Section("Issues"))
	tbl := output.NewTable("Check", "Rows").AlignRight(1)
	tbl.AddRow("missing end time", strconv.FormatInt(r.MissingData.MissingEndTime, 10))
	tbl.AddRow("missing duration", strconv.FormatInt(r.MissingData.MissingDuration, 10))
	tbl.AddRow("missing tokens", strconv.FormatInt(r.MissingData.MissingTokens, 10))
	tbl.AddRow("missing cost", strconv.FormatInt(r.MissingData.MissingCost, 10))
	tbl.AddRow("zero-message metrics", strconv.FormatInt(r.MissingData.ZeroMessageMetrics, 10))
	tbl.AddRow("negative tokens", strconv.FormatInt(r.DataIntegrity.NegativeTokens, 10))
	tbl.AddRow("negative costs", strconv.FormatInt(r.DataIntegrity.NegativeCosts, 10))
	tbl.AddRow("negative durations", strconv.FormatInt(r.DataIntegrity.NegativeDurations, 10))
	tbl.AddRow("future timestamps", strconv.FormatInt(r.DataIntegrity.FutureTimestamps, 10))
	tbl.AddRow("invalid time ranges", strconv.FormatInt(r.DataIntegrity.InvalidTimeRanges, 10))
	tbl.Fprint(w)
	fmt.Fprintf(w, "\n %s\n", output.StyleMuted.Render(fmt.Sprintf("total issues: %d", r.TotalIssues)))

	if len(r.Duplicates) > 0 {
		fmt.Fprintln(w, output.Section("Duplicate Sessions"))
		dt := output.NewTable("Session", "Rows", "First seen", "Last seen").AlignRight(1)
		for _, d := range r.Duplicates {
			dt.AddRow(
				d.SessionID,
				strconv.FormatInt(d.Count, 10),
				d.FirstSeen.UTC().Format("2006-01-02 15:04"),
				d.LastSeen.UTC().Format("2006-01-02 15:04"),
			)
		}
		dt.Fprint(w)
	}

	fmt.Fprintln(w, output.Section("Recommendations"))
	for _, rec := range r.Recommendations {
		style := output.SeverityStyle(rec.Type)
		fmt.Fprintf(w, " %s %s\n", style.Render("["+rec.Type+"]"), output.StyleBold.Render(rec.Title))
		fmt.Fprintf(w, "   %s\n", rec.Description)
		if rec.Action != nil && *rec.Action == quality.ActionDeduplicate {
			fmt.Fprintf(w, "   %s\n", output.StyleMuted.Render("run: usagelens cleanup duplicates"))
		}
	}
	fmt.Fprintln(w)
}
