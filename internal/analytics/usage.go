package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/usagelens/internal/filter"
)

// Usage returns totals and the top model, project and tool breakdowns for
// the filtered sessions. Rows with a null model or project are left out of
// the respective breakdown.
func (e *Engine) Usage(ctx context.Context, f filter.Filter) (m UsageMetrics, err error) {
	defer e.track(ctx, "usage", time.Now(), &err)

	pred := f.Compile("")
	row := e.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_cost_usd), 0),
		       COALESCE(SUM(total_input_tokens), 0),
		       COALESCE(SUM(total_output_tokens), 0),
		       COALESCE(AVG(duration_seconds), 0)
		FROM sessions WHERE `+pred.SQL, pred.Args...)
	if err := row.Scan(&m.TotalSessions, &m.TotalCost, &m.TotalInputTokens,
		&m.TotalOutputTokens, &m.AverageSessionDuration); err != nil {
		return UsageMetrics{}, fmt.Errorf("querying usage totals: %w", err)
	}

	models, err := groupCounts(ctx, e.db, `
		SELECT model_name, COUNT(*) FROM sessions
		WHERE `+pred.With("model_name IS NOT NULL").SQL+`
		GROUP BY model_name`, pred.Args)
	if err != nil {
		return UsageMetrics{}, fmt.Errorf("querying model breakdown: %w", err)
	}

	projects, err := groupCounts(ctx, e.db, `
		SELECT project_name, COUNT(*) FROM sessions
		WHERE `+pred.With("project_name IS NOT NULL").SQL+`
		GROUP BY project_name`, pred.Args)
	if err != nil {
		return UsageMetrics{}, fmt.Errorf("querying project breakdown: %w", err)
	}

	tools, err := e.toolCounts(ctx, f)
	if err != nil {
		return UsageMetrics{}, err
	}

	m.TopModels = usageBreakdown(models)
	m.TopProjects = usageBreakdown(projects)
	m.TopTools = usageBreakdown(tools)
	return m, nil
}
