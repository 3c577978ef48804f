package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/usagelens/internal/filter"
	"github.com/blackwell-systems/usagelens/internal/store"
)

func TestCost_SeriesGranularities(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		// Monday 2026-03-02 and Sunday 2026-03-08 share a week.
		withCost(session(t, "a", "2026-03-02T09:00:00Z"), 1),
		withCost(session(t, "b", "2026-03-02T17:00:00Z"), 2),
		withCost(session(t, "c", "2026-03-08T23:00:00Z"), 4),
		withCost(session(t, "d", "2026-04-01T12:00:00Z"), 8),
	)

	c, err := e.Cost(context.Background(), filter.Filter{})
	require.NoError(t, err)

	assert.Equal(t, []TimeSeriesPoint{
		{Date: "2026-03-02", Value: 3, Count: 2},
		{Date: "2026-03-08", Value: 4, Count: 1},
		{Date: "2026-04-01", Value: 8, Count: 1},
	}, c.TimeSeries.Daily)

	assert.Equal(t, []TimeSeriesPoint{
		{Date: "2026-03-02", Value: 7, Count: 3},
		{Date: "2026-03-30", Value: 8, Count: 1},
	}, c.TimeSeries.Weekly)

	assert.Equal(t, []TimeSeriesPoint{
		{Date: "2026-03-01", Value: 7, Count: 3},
		{Date: "2026-04-01", Value: 8, Count: 1},
	}, c.TimeSeries.Monthly)
}

func TestCost_DailySeriesKeepsMostRecent30Ascending(t *testing.T) {
	e, db := newTestEngine(t)
	start := at(t, "2026-01-01T12:00:00Z")
	for i := 0; i < 35; i++ {
		seed(t, db, withCost(&store.Session{
			SessionID: fmt.Sprintf("s%d", i),
			StartedAt: start.AddDate(0, 0, i),
		}, 1))
	}

	c, err := e.Cost(context.Background(), filter.Filter{})
	require.NoError(t, err)

	require.Len(t, c.TimeSeries.Daily, 30)
	assert.Equal(t, "2026-01-06", c.TimeSeries.Daily[0].Date)
	assert.Equal(t, "2026-02-04", c.TimeSeries.Daily[29].Date)
	assert.LessOrEqual(t, len(c.TimeSeries.Weekly), 12)
	assert.LessOrEqual(t, len(c.TimeSeries.Monthly), 6)
}

func TestCost_BreakdownUsesGrandTotal(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		withProject(withModel(withCost(session(t, "a", "2026-01-01T00:00:00Z"), 6), "opus"), "api"),
		withProject(withModel(withCost(session(t, "b", "2026-01-02T00:00:00Z"), 2), "sonnet"), "web"),
		withCost(session(t, "c", "2026-01-03T00:00:00Z"), 2),
	)

	c, err := e.Cost(context.Background(), filter.Filter{})
	require.NoError(t, err)

	assert.Equal(t, []ValueBreakdown{
		{Name: "opus", Value: 6, Percentage: 60},
		{Name: "Unknown", Value: 2, Percentage: 20},
		{Name: "sonnet", Value: 2, Percentage: 20},
	}, c.ByModel)
	assert.Equal(t, []ValueBreakdown{
		{Name: "api", Value: 6, Percentage: 60},
		{Name: "Unknown", Value: 2, Percentage: 20},
		{Name: "web", Value: 2, Percentage: 20},
	}, c.ByProject)
	assert.LessOrEqual(t, sumValues(c.ByModel), 100.0)
}

func TestCost_ZeroGrandTotal(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db, withModel(session(t, "a", "2026-01-01T00:00:00Z"), "opus"))

	c, err := e.Cost(context.Background(), filter.Filter{})
	require.NoError(t, err)

	require.Len(t, c.ByModel, 1)
	assert.Zero(t, c.ByModel[0].Percentage)
}

func TestCost_MostExpensive(t *testing.T) {
	e, db := newTestEngine(t)
	for i := 0; i < 12; i++ {
		seed(t, db, withCost(session(t, fmt.Sprintf("s%02d", i), "2026-01-01T00:00:00Z"), float64(i)))
	}

	c, err := e.Cost(context.Background(), filter.Filter{})
	require.NoError(t, err)

	require.Len(t, c.MostExpensive, 10)
	assert.Equal(t, "s11", c.MostExpensive[0].SessionID)
	assert.InDelta(t, 11.0, c.MostExpensive[0].TotalCostUSD, 1e-9)
	assert.Equal(t, "s02", c.MostExpensive[9].SessionID)
	assert.NotNil(t, c.MostExpensive[0].ToolsUsed)
}

func TestCost_EmptyStore(t *testing.T) {
	e, _ := newTestEngine(t)

	c, err := e.Cost(context.Background(), filter.Filter{})
	require.NoError(t, err)

	assert.Empty(t, c.TimeSeries.Daily)
	assert.NotNil(t, c.TimeSeries.Daily)
	assert.Empty(t, c.ByModel)
	assert.NotNil(t, c.ByModel)
	assert.Empty(t, c.MostExpensive)
}

func TestTokens_EfficiencyRatio(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		withTokens(session(t, "a", "2026-05-01T08:00:00Z"), 300, 100),
		withTokens(session(t, "b", "2026-05-01T09:00:00Z"), 0, 100),
		withTokens(session(t, "c", "2026-05-02T08:00:00Z"), 0, 50),
	)

	tok, err := e.Tokens(context.Background(), filter.Filter{})
	require.NoError(t, err)

	assert.Equal(t, []RatioPoint{
		{Date: "2026-05-01", Ratio: 0.667},
		{Date: "2026-05-02", Ratio: 0},
	}, tok.EfficiencyRatio)

	assert.Equal(t, []TimeSeriesPoint{
		{Date: "2026-05-01", Value: 500, Count: 2},
		{Date: "2026-05-02", Value: 50, Count: 1},
	}, tok.TimeSeries.Daily)
}

func TestTokens_EfficiencyFloorsShortDurations(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		// 600 tokens over 2 minutes: 300/min.
		withDuration(withTokens(session(t, "a", "2026-05-01T08:00:00Z"), 400, 200), 120),
		// 0.6s floors to 0.1 minute: 100 tokens -> 1000/min.
		withDuration(withTokens(session(t, "b", "2026-05-01T09:00:00Z"), 50, 50), 0.6),
		// No duration: excluded.
		withTokens(session(t, "c", "2026-05-01T10:00:00Z"), 1000, 1000),
	)

	tok, err := e.Tokens(context.Background(), filter.Filter{})
	require.NoError(t, err)

	require.Len(t, tok.Efficiency, 1)
	assert.Equal(t, "2026-05-01", tok.Efficiency[0].Date)
	assert.InDelta(t, 650.0, tok.Efficiency[0].TokensPerMinute, 1e-9)
	assert.Equal(t, int64(2), tok.Efficiency[0].Sessions)
}

func TestDailyUsage(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		withTokens(withCost(session(t, "a", "2026-06-02T08:00:00Z"), 1.25), 10, 20),
		withTokens(withCost(session(t, "b", "2026-06-01T08:00:00Z"), 0.75), 5, 5),
		withTokens(withCost(session(t, "c", "2026-06-02T22:00:00Z"), 0.25), 1, 2),
	)

	points, err := e.DailyUsage(context.Background(), filter.Filter{})
	require.NoError(t, err)

	assert.Equal(t, []DailyUsagePoint{
		{Date: "2026-06-01", Sessions: 1, Cost: 0.75, InputTokens: 5, OutputTokens: 5},
		{Date: "2026-06-02", Sessions: 2, Cost: 1.5, InputTokens: 11, OutputTokens: 22},
	}, points)
}

func TestDailyUsage_RespectsFilter(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		withProject(session(t, "a", "2026-06-01T08:00:00Z"), "api"),
		withProject(session(t, "b", "2026-06-02T08:00:00Z"), "web"),
	)

	points, err := e.DailyUsage(context.Background(), filter.Filter{ProjectName: ptr("web")})
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.Equal(t, "2026-06-02", points[0].Date)
}

func TestDailyUsage_SpanningDays(t *testing.T) {
	e, db := newTestEngine(t)
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	seed(t, db,
		&store.Session{SessionID: "a", StartedAt: base.Add(23*time.Hour + 59*time.Minute)},
		&store.Session{SessionID: "b", StartedAt: base.Add(24 * time.Hour)},
	)

	points, err := e.DailyUsage(context.Background(), filter.Filter{})
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, "2026-07-01", points[0].Date)
	assert.Equal(t, "2026-07-02", points[1].Date)
}
