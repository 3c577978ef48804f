package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/output"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Show per-day sessions, cost and tokens for the 30 most recent active days",
	Args:  cobra.NoArgs,
	RunE: filteredRun((*analytics.Engine).DailyUsage, func(w io.Writer, points []analytics.DailyUsagePoint) {
		fmt.Fprintln(w, output.Section("Daily Usage"))
		renderDaily(w, points)
		fmt.Fprintln(w)
	}),
}

func init() {
	addFilterFlags(dailyCmd)
	rootCmd.AddCommand(dailyCmd)
}

func renderDaily(w io.Writer, points []analytics.DailyUsagePoint) {
	tbl := output.NewTable("Date", "Sessions", "Cost", "Input", "Output").AlignRight(1, 2, 3, 4)
	for _, p := range points {
		tbl.AddRow(
			p.Date,
			strconv.FormatInt(p.Sessions, 10),
			output.FormatCost(p.Cost),
			output.FormatTokenCount(p.InputTokens),
			output.FormatTokenCount(p.OutputTokens),
		)
	}
	tbl.Fprint(w)
}
