package app

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/filter"
	"github.com/blackwell-systems/usagelens/internal/output"
)

const barWidth = 20

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show session, cost and token totals with top models, projects and tools",
	Long: `Summarize the filtered sessions: totals, average duration and the ten
most used models, projects and tools.

Examples:
  usagelens usage
  usagelens usage --from 2026-01-01 --to 2026-01-31
  usagelens usage --project api --json`,
	Args: cobra.NoArgs,
	RunE: filteredRun((*analytics.Engine).Usage, renderUsage),
}

func init() {
	addFilterFlags(usageCmd)
	rootCmd.AddCommand(usageCmd)
}

// filteredRun builds a RunE that evaluates op under the filter flags and
// prints the result as JSON or through render.
func filteredRun[T any](op func(*analytics.Engine, context.Context, filter.Filter) (T, error), render func(io.Writer, T)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		f, err := flagFilter.build()
		if err != nil {
			return err
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := op(env.engine, cmd.Context(), f)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), v)
		}
		if !f.IsEmpty() {
			fmt.Fprintln(cmd.OutOrStdout(), " "+output.StyleMuted.Render("filtered view"))
		}
		render(cmd.OutOrStdout(), v)
		return nil
	}
}

func renderUsage(w io.Writer, m analytics.UsageMetrics) {
	fmt.Fprintln(w, output.Section("Usage"))
	fmt.Fprintln(w, output.KeyValue("Sessions:      ", strconv.FormatInt(m.TotalSessions, 10)))
	fmt.Fprintln(w, output.KeyValue("Total cost:    ", output.FormatCost(m.TotalCost)))
	fmt.Fprintln(w, output.KeyValue("Input tokens:  ", output.FormatTokenCount(m.TotalInputTokens)))
	fmt.Fprintln(w, output.KeyValue("Output tokens: ", output.FormatTokenCount(m.TotalOutputTokens)))
	fmt.Fprintln(w, output.KeyValue("Avg duration:  ", output.FormatDuration(m.AverageSessionDuration)))

	renderBreakdown(w, "Top Models", "Model", m.TopModels)
	renderBreakdown(w, "Top Projects", "Project", m.TopProjects)
	renderBreakdown(w, "Top Tools", "Tool", m.TopTools)
	fmt.Fprintln(w)
}

func renderBreakdown(w io.Writer, title, header string, rows []analytics.UsageBreakdown) {
	fmt.Fprintln(w, output.Section(title))
	tbl := output.NewTable(header, "Sessions", "Share").AlignRight(1, 2)
	for _, r := range rows {
		tbl.AddRow(r.Name, strconv.FormatInt(r.Count, 10), output.FormatPercent(r.Percentage))
	}
	tbl.Fprint(w)
}

func renderValues(w io.Writer, title, header string, rows []analytics.ValueBreakdown, format func(float64) string) {
	fmt.Fprintln(w, output.Section(title))
	tbl := output.NewTable(header, "Total", "Share").AlignRight(1, 2)
	for _, r := range rows {
		tbl.AddRow(r.Name, format(r.Value), output.FormatPercent(r.Percentage))
	}
	tbl.Fprint(w)
}

func renderNameValues(w io.Writer, title, header string, rows []analytics.NameValue) {
	fmt.Fprintln(w, output.Section(title))
	var max int64
	for _, r := range rows {
		if r.Value > max {
			max = r.Value
		}
	}
	tbl := output.NewTable(header, "Sessions", "").AlignRight(1)
	for _, r := range rows {
		tbl.AddRow(r.Name, strconv.FormatInt(r.Value, 10), output.Bar(float64(r.Value), float64(max), barWidth))
	}
	tbl.Fprint(w)
}
