package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/output"
)

var flagGranularity string

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Break spend down over time, model and project",
	Long: `Show cost per day, week or month, cost by model and project as a share
of total spend, and the ten most expensive sessions.

Examples:
  usagelens costs
  usagelens costs --by weekly
  usagelens costs --model claude-sonnet --json`,
	Args:    cobra.NoArgs,
	PreRunE: checkGranularity,
	RunE:    filteredRun((*analytics.Engine).Cost, renderCosts),
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Break token volume down over time, model and project",
	Long: `Show total tokens per day, week or month, tokens by model and project,
the daily output/input ratio and average throughput in tokens per minute.`,
	Args:    cobra.NoArgs,
	PreRunE: checkGranularity,
	RunE:    filteredRun((*analytics.Engine).Tokens, renderTokens),
}

func init() {
	for _, c := range []*cobra.Command{costsCmd, tokensCmd} {
		addFilterFlags(c)
		c.Flags().StringVar(&flagGranularity, "by", "daily", "Time series granularity: daily, weekly, monthly")
		rootCmd.AddCommand(c)
	}
}

func checkGranularity(_ *cobra.Command, _ []string) error {
	switch flagGranularity {
	case "daily", "weekly", "monthly":
		return nil
	}
	return fmt.Errorf("invalid --by %q: want daily, weekly or monthly", flagGranularity)
}

func selectSeries(ts analytics.TimeSeries) []analytics.TimeSeriesPoint {
	switch flagGranularity {
	case "weekly":
		return ts.Weekly
	case "monthly":
		return ts.Monthly
	default:
		return ts.Daily
	}
}

func renderSeries(w io.Writer, title string, points []analytics.TimeSeriesPoint, format func(float64) string) {
	fmt.Fprintln(w, output.Section(title))
	var max float64
	for _, p := range points {
		if p.Value > max {
			max = p.Value
		}
	}
	tbl := output.NewTable("Period", "Total", "Sessions", "").AlignRight(1, 2)
	for _, p := range points {
		tbl.AddRow(p.Date, format(p.Value), strconv.FormatInt(p.Count, 10), output.Bar(p.Value, max, barWidth))
	}
	tbl.Fprint(w)
}

func formatTokens(v float64) string { return output.FormatTokenCount(int64(v)) }

func granularityTitle(metric string) string {
	return strings.ToUpper(flagGranularity[:1]) + flagGranularity[1:] + " " + metric
}

func renderCosts(w io.Writer, c analytics.CostAnalysis) {
	renderSeries(w, granularityTitle("Cost"), selectSeries(c.TimeSeries), output.FormatCost)
	renderValues(w, "Cost by Model", "Model", c.ByModel, output.FormatCost)
	renderValues(w, "Cost by Project", "Project", c.ByProject, output.FormatCost)

	fmt.Fprintln(w, output.Section("Most Expensive Sessions"))
	tbl := output.NewTable("Session", "Project", "Model", "Started", "Cost").AlignRight(4)
	for _, s := range c.MostExpensive {
		tbl.AddRow(
			output.TruncateID(s.SessionID),
			orUnknown(s.ProjectName),
			orUnknown(s.ModelName),
			s.StartedAt.UTC().Format("2006-01-02 15:04"),
			output.FormatCost(s.TotalCostUSD),
		)
	}
	tbl.Fprint(w)
	fmt.Fprintln(w)
}

func renderTokens(w io.Writer, t analytics.TokenAnalysis) {
	renderSeries(w, granularityTitle("Tokens"), selectSeries(t.TimeSeries), formatTokens)
	renderValues(w, "Tokens by Model", "Model", t.ByModel, formatTokens)
	renderValues(w, "Tokens by Project", "Project", t.ByProject, formatTokens)

	fmt.Fprintln(w, output.Section("Output/Input Ratio"))
	ratios := output.NewTable("Date", "Ratio").AlignRight(1)
	for _, p := range t.EfficiencyRatio {
		ratios.AddRow(p.Date, strconv.FormatFloat(p.Ratio, 'f', 2, 64))
	}
	ratios.Fprint(w)

	renderEfficiency(w, t.Efficiency)
	fmt.Fprintln(w)
}

func renderEfficiency(w io.Writer, points []analytics.EfficiencyPoint) {
	fmt.Fprintln(w, output.Section("Throughput"))
	tbl := output.NewTable("Date", "Tokens/min", "Sessions").AlignRight(1, 2)
	for _, p := range points {
		tbl.AddRow(p.Date, strconv.FormatFloat(p.TokensPerMinute, 'f', 2, 64), strconv.FormatInt(p.Sessions, 10))
	}
	tbl.Fprint(w)
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return output.StyleMuted.Render("unknown")
	}
	return *s
}
