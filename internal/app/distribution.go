package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/output"
)

var distributionCmd = &cobra.Command{
	Use:   "distribution",
	Short: "Show the ten most common models, tools and projects",
	Args:  cobra.NoArgs,
	RunE:  filteredRun((*analytics.Engine).Distributions, renderDistributions),
}

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Show session starts by weekday and hour (UTC)",
	Args:  cobra.NoArgs,
	RunE:  filteredRun((*analytics.Engine).Heatmap, renderHeatmap),
}

func init() {
	for _, c := range []*cobra.Command{distributionCmd, heatmapCmd} {
		addFilterFlags(c)
		rootCmd.AddCommand(c)
	}
}

func renderDistributions(w io.Writer, d analytics.Distributions) {
	renderNameValues(w, "Models", "Model", d.Models)
	renderNameValues(w, "Tools", "Tool", d.Tools)
	renderNameValues(w, "Projects", "Project", d.Projects)
	fmt.Fprintln(w)
}

func renderHeatmap(w io.Writer, h analytics.Heatmap) {
	grid := h.Grid()
	max := 0
	for _, row := range grid {
		for _, v := range row {
			if v > max {
				max = v
			}
		}
	}

	fmt.Fprintln(w, output.Section("Activity by Hour (UTC)"))

	var hdr strings.Builder
	hdr.WriteString("     ")
	for hour := 0; hour < 24; hour += 3 {
		fmt.Fprintf(&hdr, "%-3d", hour)
	}
	fmt.Fprintln(w, output.StyleMuted.Render(hdr.String()))

	for d, row := range grid {
		var line strings.Builder
		fmt.Fprintf(&line, " %s ", output.StyleBold.Render(analytics.Weekdays[d]))
		for _, v := range row {
			line.WriteString(output.HeatCell(v, max))
		}
		fmt.Fprintln(w, line.String())
	}
	fmt.Fprintf(w, "\n %s\n\n", output.StyleMuted.Render(fmt.Sprintf("peak: %d sessions", max)))
}
