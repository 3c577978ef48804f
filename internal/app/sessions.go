package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/output"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "List sessions newest first, or inspect one session",
	Long: `List the filtered sessions newest first, one page at a time. With a
session ID, show the latest stored row for it and its message count.

Examples:
  usagelens sessions                         # first page (sessions.default_limit)
  usagelens sessions --limit 50 --offset 50  # second page of 50
  usagelens sessions --project api
  usagelens sessions 0b7c4c1e-...            # inspect a single session`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	addFilterFlags(sessionsCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	f, err := flagFilter.build()
	if err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	w := cmd.OutOrStdout()

	if len(args) == 1 {
		d, err := env.engine.GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("session %s not found", args[0])
		}
		if flagJSON {
			return writeJSON(w, d)
		}
		renderSessionDetail(w, d)
		return nil
	}

	if f.Limit == nil {
		f.Limit = lo.ToPtr(env.cfg.Sessions.DefaultLimit)
	}
	if f.Offset == nil {
		f.Offset = lo.ToPtr(0)
	}
	list, err := env.engine.ListSessions(cmd.Context(), f)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(w, list)
	}
	renderSessionList(w, list, *f.Offset)
	return nil
}

func renderSessionList(w io.Writer, l analytics.SessionList, offset int) {
	fmt.Fprintln(w, output.Section("Sessions"))
	if len(l.Sessions) == 0 {
		fmt.Fprintln(w, " "+output.StyleMuted.Render("no sessions"))
		fmt.Fprintln(w)
		return
	}

	tbl := output.NewTable("Session", "Started", "Project", "Model", "Duration", "Tokens", "Cost").AlignRight(4, 5, 6)
	for _, s := range l.Sessions {
		duration := "-"
		if s.DurationSeconds != nil {
			duration = output.FormatDuration(*s.DurationSeconds)
		}
		tbl.AddRow(
			output.TruncateID(s.SessionID),
			s.StartedAt.UTC().Format("2006-01-02 15:04"),
			orUnknown(s.ProjectName),
			orUnknown(s.ModelName),
			duration,
			output.FormatTokenCount(s.TotalInputTokens+s.TotalOutputTokens),
			output.FormatCost(s.TotalCostUSD),
		)
	}
	tbl.Fprint(w)

	footer := fmt.Sprintf("showing %d-%d of %d", offset+1, offset+len(l.Sessions), l.Total)
	if l.HasMore {
		footer += fmt.Sprintf(" (next: --offset %d)", offset+len(l.Sessions))
	}
	fmt.Fprintf(w, "\n %s\n\n", output.StyleMuted.Render(footer))
}

func renderSessionDetail(w io.Writer, d *analytics.SessionDetail) {
	fmt.Fprintln(w, output.Section("Session "+d.SessionID))
	fmt.Fprintln(w, output.KeyValue("Row ID:        ", d.ID))
	fmt.Fprintln(w, output.KeyValue("Project:       ", orUnknown(d.ProjectName)))
	fmt.Fprintln(w, output.KeyValue("Model:         ", orUnknown(d.ModelName)))
	fmt.Fprintln(w, output.KeyValue("Started:       ", d.StartedAt.UTC().Format("2006-01-02 15:04:05")))
	ended := "-"
	if d.EndedAt != nil {
		ended = d.EndedAt.UTC().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintln(w, output.KeyValue("Ended:         ", ended))
	duration := "-"
	if d.DurationSeconds != nil {
		duration = output.FormatDuration(*d.DurationSeconds)
	}
	fmt.Fprintln(w, output.KeyValue("Duration:      ", duration))
	fmt.Fprintln(w, output.KeyValue("Cost:          ", output.FormatCost(d.TotalCostUSD)))
	fmt.Fprintln(w, output.KeyValue("Input tokens:  ", output.FormatTokenCount(d.TotalInputTokens)))
	fmt.Fprintln(w, output.KeyValue("Output tokens: ", output.FormatTokenCount(d.TotalOutputTokens)))
	fmt.Fprintln(w, output.KeyValue("Cache hits:    ", strconv.FormatInt(d.CacheHitCount, 10)))
	fmt.Fprintln(w, output.KeyValue("Cache misses:  ", strconv.FormatInt(d.CacheMissCount, 10)))
	fmt.Fprintln(w, output.KeyValue("Messages:      ", strconv.FormatInt(d.MessageCount, 10)))
	tools := "-"
	if len(d.ToolsUsed) > 0 {
		tools = strings.Join(d.ToolsUsed, ", ")
	}
	fmt.Fprintln(w, output.KeyValue("Tools:         ", tools))
	fmt.Fprintln(w)
}
