package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/blackwell-systems/usagelens/internal/filter"
	"github.com/blackwell-systems/usagelens/internal/store"
)

// granularity is one time-series resolution: the SQL expression that maps
// started_at to its bucket and the number of most recent buckets kept.
type granularity struct {
	expr  string
	limit int
}

var (
	daily   = granularity{expr: "date(started_at)", limit: 30}
	weekly  = granularity{expr: "date(started_at, 'weekday 0', '-6 days')", limit: 12}
	monthly = granularity{expr: "strftime('%Y-%m-01', started_at)", limit: 6}
)

const (
	costExpr   = "total_cost_usd"
	tokensExpr = "(total_input_tokens + total_output_tokens)"
)

// series sums valueExpr per bucket over the most recent g.limit buckets and
// returns them ascending.
func (e *Engine) series(ctx context.Context, pred filter.Predicate, g granularity, valueExpr string) ([]TimeSeriesPoint, error) {
	args := append(append([]any{}, pred.Args...), g.limit)
	points, err := collect(ctx, e.db, `
		SELECT `+g.expr+` AS bucket, COALESCE(SUM(`+valueExpr+`), 0), COUNT(*)
		FROM sessions WHERE `+pred.SQL+`
		GROUP BY bucket ORDER BY bucket DESC LIMIT ?`, args,
		func(r *sql.Rows) (TimeSeriesPoint, error) {
			var p TimeSeriesPoint
			err := r.Scan(&p.Date, &p.Value, &p.Count)
			return p, err
		})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(points), nil
}

func (e *Engine) timeSeries(ctx context.Context, pred filter.Predicate, valueExpr string) (TimeSeries, error) {
	var ts TimeSeries
	var err error
	if ts.Daily, err = e.series(ctx, pred, daily, valueExpr); err != nil {
		return TimeSeries{}, fmt.Errorf("querying daily series: %w", err)
	}
	if ts.Weekly, err = e.series(ctx, pred, weekly, valueExpr); err != nil {
		return TimeSeries{}, fmt.Errorf("querying weekly series: %w", err)
	}
	if ts.Monthly, err = e.series(ctx, pred, monthly, valueExpr); err != nil {
		return TimeSeries{}, fmt.Errorf("querying monthly series: %w", err)
	}
	return ts, nil
}

// groupedTotals sums valueExpr by model and by project (nulls grouped as
// "Unknown") with percentages of the filtered grand total.
func (e *Engine) groupedTotals(ctx context.Context, pred filter.Predicate, valueExpr string) (byModel, byProject []ValueBreakdown, err error) {
	var grand float64
	if err := e.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM("+valueExpr+"), 0) FROM sessions WHERE "+pred.SQL,
		pred.Args...).Scan(&grand); err != nil {
		return nil, nil, fmt.Errorf("querying grand total: %w", err)
	}

	models, err := groupValues(ctx, e.db, `
		SELECT COALESCE(model_name, 'Unknown') AS name, COALESCE(SUM(`+valueExpr+`), 0)
		FROM sessions WHERE `+pred.SQL+` GROUP BY name`, pred.Args)
	if err != nil {
		return nil, nil, fmt.Errorf("querying totals by model: %w", err)
	}

	projects, err := groupValues(ctx, e.db, `
		SELECT COALESCE(project_name, 'Unknown') AS name, COALESCE(SUM(`+valueExpr+`), 0)
		FROM sessions WHERE `+pred.SQL+` GROUP BY name`, pred.Args)
	if err != nil {
		return nil, nil, fmt.Errorf("querying totals by project: %w", err)
	}

	return valueBreakdown(models, grand), valueBreakdown(projects, grand), nil
}

// Cost returns spend over time, by model and project, and the most
// expensive sessions.
func (e *Engine) Cost(ctx context.Context, f filter.Filter) (c CostAnalysis, err error) {
	defer e.track(ctx, "cost", time.Now(), &err)

	pred := f.Compile("")
	if c.TimeSeries, err = e.timeSeries(ctx, pred, costExpr); err != nil {
		return CostAnalysis{}, err
	}
	if c.ByModel, c.ByProject, err = e.groupedTotals(ctx, pred, costExpr); err != nil {
		return CostAnalysis{}, err
	}

	args := append(append([]any{}, pred.Args...), topN)
	c.MostExpensive, err = collect(ctx, e.db, `
		SELECT `+store.SessionColumns+` FROM sessions WHERE `+pred.SQL+`
		ORDER BY total_cost_usd DESC, started_at DESC LIMIT ?`, args, scanSummary)
	if err != nil {
		return CostAnalysis{}, fmt.Errorf("querying most expensive sessions: %w", err)
	}
	return c, nil
}

// Tokens returns token volume over time, by model and project, and the
// per-day efficiency series.
func (e *Engine) Tokens(ctx context.Context, f filter.Filter) (t TokenAnalysis, err error) {
	defer e.track(ctx, "tokens", time.Now(), &err)

	pred := f.Compile("")
	if t.TimeSeries, err = e.timeSeries(ctx, pred, tokensExpr); err != nil {
		return TokenAnalysis{}, err
	}
	if t.ByModel, t.ByProject, err = e.groupedTotals(ctx, pred, tokensExpr); err != nil {
		return TokenAnalysis{}, err
	}
	if t.EfficiencyRatio, err = e.ratioSeries(ctx, pred); err != nil {
		return TokenAnalysis{}, err
	}
	if t.Efficiency, err = e.efficiencySeries(ctx, pred.With("duration_seconds IS NOT NULL")); err != nil {
		return TokenAnalysis{}, err
	}
	return t, nil
}

// ratioSeries returns Σoutput/Σinput per day, 0 on days without input.
func (e *Engine) ratioSeries(ctx context.Context, pred filter.Predicate) ([]RatioPoint, error) {
	type dayTokens struct {
		date    string
		in, out float64
	}
	args := append(append([]any{}, pred.Args...), daily.limit)
	days, err := collect(ctx, e.db, `
		SELECT date(started_at) AS day,
		       COALESCE(SUM(total_input_tokens), 0),
		       COALESCE(SUM(total_output_tokens), 0)
		FROM sessions WHERE `+pred.SQL+`
		GROUP BY day ORDER BY day DESC LIMIT ?`, args,
		func(r *sql.Rows) (dayTokens, error) {
			var d dayTokens
			err := r.Scan(&d.date, &d.in, &d.out)
			return d, err
		})
	if err != nil {
		return nil, fmt.Errorf("querying efficiency ratio: %w", err)
	}

	return lo.Map(lo.Reverse(days), func(d dayTokens, _ int) RatioPoint {
		p := RatioPoint{Date: d.date}
		if d.in != 0 {
			p.Ratio = round(d.out/d.in, 3)
		}
		return p
	}), nil
}

// efficiencySeries averages tokens per minute per day over the most recent
// 30 days. Durations under six seconds count as 0.1 minutes.
func (e *Engine) efficiencySeries(ctx context.Context, pred filter.Predicate) ([]EfficiencyPoint, error) {
	args := append(append([]any{}, pred.Args...), daily.limit)
	points, err := collect(ctx, e.db, `
		SELECT date(started_at) AS day,
		       AVG(`+tokensExpr+` / MAX(duration_seconds / 60.0, 0.1)),
		       COUNT(*)
		FROM sessions WHERE `+pred.SQL+`
		GROUP BY day ORDER BY day DESC LIMIT ?`, args,
		func(r *sql.Rows) (EfficiencyPoint, error) {
			var p EfficiencyPoint
			var avg sql.NullFloat64
			if err := r.Scan(&p.Date, &avg, &p.Sessions); err != nil {
				return p, err
			}
			p.TokensPerMinute = round(avg.Float64, 2)
			return p, nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying token efficiency: %w", err)
	}
	return lo.Reverse(points), nil
}

// DailyUsage returns per-day totals for the 30 most recent days with
// sessions, ascending.
func (e *Engine) DailyUsage(ctx context.Context, f filter.Filter) (points []DailyUsagePoint, err error) {
	defer e.track(ctx, "daily_usage", time.Now(), &err)

	pred := f.Compile("")
	args := append(append([]any{}, pred.Args...), daily.limit)
	points, err = collect(ctx, e.db, `
		SELECT date(started_at) AS day,
		       COUNT(*),
		       COALESCE(SUM(total_cost_usd), 0),
		       COALESCE(SUM(total_input_tokens), 0),
		       COALESCE(SUM(total_output_tokens), 0)
		FROM sessions WHERE `+pred.SQL+`
		GROUP BY day ORDER BY day DESC LIMIT ?`, args,
		func(r *sql.Rows) (DailyUsagePoint, error) {
			var p DailyUsagePoint
			err := r.Scan(&p.Date, &p.Sessions, &p.Cost, &p.InputTokens, &p.OutputTokens)
			return p, err
		})
	if err != nil {
		return nil, fmt.Errorf("querying daily usage: %w", err)
	}
	return lo.Reverse(points), nil
}

func scanSummary(r *sql.Rows) (SessionSummary, error) {
	s, err := store.ScanSession(r)
	if err != nil {
		return SessionSummary{}, err
	}
	return summaryFromSession(s), nil
}
