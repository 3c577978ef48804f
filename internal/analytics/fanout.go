package analytics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samber/lo"

	"github.com/blackwell-systems/usagelens/internal/filter"
	"github.com/blackwell-systems/usagelens/internal/store"
)

// ToolUse is one (session, tool) pair produced by exploding a session's
// tools_used list.
type ToolUse struct {
	SessionRef string
	Tool       string
}

type toolsRow struct {
	sessionRef string
	raw        string
}

// explode turns list-valued tool columns into one pair per element.
// Blank tool names are dropped.
func explode(rows []toolsRow) []ToolUse {
	return lo.FlatMap(rows, func(r toolsRow, _ int) []ToolUse {
		tools := lo.Filter(store.DecodeTools(r.raw), func(t string, _ int) bool { return t != "" })
		return lo.Map(tools, func(t string, _ int) ToolUse {
			return ToolUse{SessionRef: r.sessionRef, Tool: t}
		})
	})
}

// countTools groups exploded pairs by tool name.
func countTools(uses []ToolUse) map[string]int64 {
	counts := lo.CountValuesBy(uses, func(u ToolUse) string { return u.Tool })
	return lo.MapValues(counts, func(n int, _ string) int64 { return int64(n) })
}

// toolCounts loads the tool lists of the filtered sessions that have any
// and counts one use per list element.
func (e *Engine) toolCounts(ctx context.Context, f filter.Filter) (map[string]int64, error) {
	pred := f.Compile("").With("tools_used IS NOT NULL AND tools_used != '[]'")
	rows, err := collect(ctx, e.db,
		"SELECT id, tools_used FROM sessions WHERE "+pred.SQL, pred.Args,
		func(r *sql.Rows) (toolsRow, error) {
			var t toolsRow
			err := r.Scan(&t.sessionRef, &t.raw)
			return t, err
		})
	if err != nil {
		return nil, fmt.Errorf("querying tools: %w", err)
	}
	return countTools(explode(rows)), nil
}
