// Package app contains the Cobra command tree for usagelens.
package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/output"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
	flagDB      string
)

var rootCmd = &cobra.Command{
	Use:   "usagelens",
	Short: "Usage analytics and data quality for AI assistant sessions",
	Long: `usagelens aggregates recorded AI assistant sessions into usage, cost,
token and performance analytics, audits the session store for data quality
problems and cleans up duplicates and orphaned metrics.

Run 'usagelens' with no arguments to see a dashboard overview.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          filteredRun((*analytics.Engine).Overview, renderOverview),
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/usagelens/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides db_path)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	addFilterFlags(rootCmd)
}

func renderOverview(w io.Writer, o analytics.Overview) {
	fmt.Fprintf(w, " %s %s\n", output.StyleBold.Render("usagelens"), output.StyleMuted.Render(appVersion))
	renderUsage(w, o.Usage)

	fmt.Fprintln(w, output.Section("Recent Days"))
	days := o.Daily
	if len(days) > 7 {
		days = days[len(days)-7:]
	}
	renderDaily(w, days)

	fmt.Fprintln(w, output.Section("Cache"))
	fmt.Fprintln(w, output.KeyValue("Hit rate:      ", output.FormatPercent(o.Performance.CacheStats.HitRate*100)))
	fmt.Fprintln(w, output.KeyValue("Requests:      ", output.FormatTokenCount(o.Performance.CacheStats.TotalRequests)))
	fmt.Fprintln(w)
}
