package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/output"
)

var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Show session length histogram, throughput and cache effectiveness",
	Args:  cobra.NoArgs,
	RunE:  filteredRun((*analytics.Engine).Performance, renderPerformance),
}

func init() {
	addFilterFlags(performanceCmd)
	rootCmd.AddCommand(performanceCmd)
}

func renderPerformance(w io.Writer, p analytics.PerformanceMetrics) {
	renderNameValues(w, "Session Length", "Length", p.SessionLengths)
	renderEfficiency(w, p.TokenEfficiency)

	fmt.Fprintln(w, output.Section("Cache"))
	fmt.Fprintln(w, output.KeyValue("Hit rate:      ", output.FormatPercent(p.CacheStats.HitRate*100)))
	fmt.Fprintln(w, output.KeyValue("Requests:      ", output.FormatTokenCount(p.CacheStats.TotalRequests)))
	fmt.Fprintln(w)
}
