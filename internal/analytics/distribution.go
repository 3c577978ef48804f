package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blackwell-systems/usagelens/internal/filter"
)

// Distributions returns the top model, tool and project counts. A null
// project counts as "Unknown"; a null model is left out.
func (e *Engine) Distributions(ctx context.Context, f filter.Filter) (d Distributions, err error) {
	defer e.track(ctx, "distributions", time.Now(), &err)

	pred := f.Compile("")
	models, err := groupCounts(ctx, e.db, `
		SELECT model_name, COUNT(*) FROM sessions
		WHERE `+pred.With("model_name IS NOT NULL").SQL+`
		GROUP BY model_name`, pred.Args)
	if err != nil {
		return Distributions{}, fmt.Errorf("querying model distribution: %w", err)
	}

	projects, err := groupCounts(ctx, e.db, `
		SELECT COALESCE(project_name, 'Unknown') AS name, COUNT(*) FROM sessions
		WHERE `+pred.SQL+`
		GROUP BY name`, pred.Args)
	if err != nil {
		return Distributions{}, fmt.Errorf("querying project distribution: %w", err)
	}

	tools, err := e.toolCounts(ctx, f)
	if err != nil {
		return Distributions{}, err
	}

	return Distributions{
		Models:   rankCounts(models, topN),
		Tools:    rankCounts(tools, topN),
		Projects: rankCounts(projects, topN),
	}, nil
}

// Heatmap counts sessions per day-of-week and hour of started_at (UTC).
// Only non-empty cells are returned, ordered by day then hour.
func (e *Engine) Heatmap(ctx context.Context, f filter.Filter) (h Heatmap, err error) {
	defer e.track(ctx, "heatmap", time.Now(), &err)

	pred := f.Compile("")
	h.Cells, err = collect(ctx, e.db, `
		SELECT CAST(strftime('%w', started_at) AS INTEGER) AS dow,
		       CAST(strftime('%H', started_at) AS INTEGER) AS hour,
		       COUNT(*)
		FROM sessions WHERE `+pred.SQL+`
		GROUP BY dow, hour ORDER BY dow, hour`, pred.Args,
		func(r *sql.Rows) (HeatmapCell, error) {
			var c HeatmapCell
			var dow int
			if err := r.Scan(&dow, &c.Hour, &c.Value); err != nil {
				return c, err
			}
			if dow < 0 || dow > 6 {
				return c, fmt.Errorf("day of week %d out of range", dow)
			}
			c.Day = Weekdays[dow]
			return c, nil
		})
	if err != nil {
		return Heatmap{}, fmt.Errorf("querying heatmap: %w", err)
	}
	return h, nil
}
