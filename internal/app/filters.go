package app

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/filter"
)

// filterFlags are the raw values of the shared filter flags.
type filterFlags struct {
	from     string
	to       string
	project  string
	model    string
	sessions []string
	limit    int
	offset   int
}

var flagFilter filterFlags

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFilter.from, "from", "", "Only sessions started at or after this date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&flagFilter.to, "to", "", "Only sessions started at or before this date; a bare date covers the whole day")
	cmd.Flags().StringVar(&flagFilter.project, "project", "", "Filter to an exact project name")
	cmd.Flags().StringVar(&flagFilter.model, "model", "", "Filter to an exact model name")
	cmd.Flags().StringSliceVar(&flagFilter.sessions, "session", nil, "Filter to session IDs (repeatable or comma separated)")
	cmd.Flags().IntVar(&flagFilter.limit, "limit", -1, "Maximum rows (session listing only)")
	cmd.Flags().IntVar(&flagFilter.offset, "offset", -1, "Rows to skip (session listing only)")
}

// build converts the flag values into a filter. Negative limit and offset
// mean unset.
func (ff filterFlags) build() (filter.Filter, error) {
	var f filter.Filter
	if ff.from != "" {
		t, err := filter.ParseDate(ff.from, false)
		if err != nil {
			return f, fmt.Errorf("invalid --from: %w", err)
		}
		f.DateFrom = &t
	}
	if ff.to != "" {
		t, err := filter.ParseDate(ff.to, true)
		if err != nil {
			return f, fmt.Errorf("invalid --to: %w", err)
		}
		f.DateTo = &t
	}
	if ff.project != "" {
		f.ProjectName = lo.ToPtr(ff.project)
	}
	if ff.model != "" {
		f.ModelName = lo.ToPtr(ff.model)
	}
	if ids := lo.Uniq(lo.Compact(ff.sessions)); len(ids) > 0 {
		f.SessionIDs = ids
	}
	if ff.limit >= 0 {
		f.Limit = lo.ToPtr(ff.limit)
	}
	if ff.offset >= 0 {
		f.Offset = lo.ToPtr(ff.offset)
	}
	return f, nil
}
