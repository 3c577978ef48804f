package analytics

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/usagelens/internal/filter"
)

func TestUsage_EmptyStore(t *testing.T) {
	e, _ := newTestEngine(t)

	m, err := e.Usage(context.Background(), filter.Filter{})
	require.NoError(t, err)

	assert.Zero(t, m.TotalSessions)
	assert.Zero(t, m.TotalCost)
	assert.Zero(t, m.TotalInputTokens)
	assert.Zero(t, m.TotalOutputTokens)
	assert.Zero(t, m.AverageSessionDuration)
	assert.NotNil(t, m.TopModels)
	assert.Empty(t, m.TopModels)
	assert.NotNil(t, m.TopProjects)
	assert.Empty(t, m.TopProjects)
	assert.NotNil(t, m.TopTools)
	assert.Empty(t, m.TopTools)
}

func TestUsage_Totals(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		withDuration(withTokens(withCost(session(t, "a", "2026-03-01T10:00:00Z"), 1.5), 100, 50), 120),
		withDuration(withTokens(withCost(session(t, "b", "2026-03-02T10:00:00Z"), 0.5), 200, 25), 60),
		withTokens(withCost(session(t, "c", "2026-03-03T10:00:00Z"), 2), 10, 5),
	)

	m, err := e.Usage(context.Background(), filter.Filter{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), m.TotalSessions)
	assert.InDelta(t, 4.0, m.TotalCost, 1e-9)
	assert.Equal(t, int64(310), m.TotalInputTokens)
	assert.Equal(t, int64(80), m.TotalOutputTokens)
	// Null durations are excluded from the mean.
	assert.InDelta(t, 90.0, m.AverageSessionDuration, 1e-9)
}

func TestUsage_TotalSessionsMatchesFilter(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		withProject(withModel(session(t, "a", "2026-01-05T08:00:00Z"), "opus"), "api"),
		withProject(withModel(session(t, "b", "2026-01-10T08:00:00Z"), "sonnet"), "api"),
		withProject(withModel(session(t, "c", "2026-02-01T08:00:00Z"), "opus"), "web"),
		withModel(session(t, "d", "2026-02-15T08:00:00Z"), "haiku"),
	)

	tests := []struct {
		name string
		f    filter.Filter
		want int64
	}{
		{"all", filter.Filter{}, 4},
		{"project", filter.Filter{ProjectName: ptr("api")}, 2},
		{"model", filter.Filter{ModelName: ptr("opus")}, 2},
		{"date range inclusive", filter.Filter{
			DateFrom: ptr(at(t, "2026-01-10T08:00:00Z")),
			DateTo:   ptr(at(t, "2026-02-01T08:00:00Z")),
		}, 2},
		{"session ids", filter.Filter{SessionIDs: []string{"a", "d", "missing"}}, 2},
		{"no match", filter.Filter{ProjectName: ptr("nope")}, 0},
		{"pagination ignored", filter.Filter{Limit: ptr(1), Offset: ptr(1)}, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := e.Usage(context.Background(), tc.f)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.TotalSessions)
		})
	}
}

func TestUsage_BreakdownPercentagesUseOwnTotal(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		withProject(session(t, "a", "2026-01-01T00:00:00Z"), "api"),
		withProject(session(t, "b", "2026-01-02T00:00:00Z"), "api"),
		withProject(session(t, "c", "2026-01-03T00:00:00Z"), "web"),
		// Null project: counted in TotalSessions, not in the project base.
		session(t, "d", "2026-01-04T00:00:00Z"),
	)

	m, err := e.Usage(context.Background(), filter.Filter{})
	require.NoError(t, err)

	assert.Equal(t, int64(4), m.TotalSessions)
	require.Len(t, m.TopProjects, 2)
	assert.Equal(t, UsageBreakdown{Name: "api", Count: 2, Percentage: 66.67}, m.TopProjects[0])
	assert.Equal(t, UsageBreakdown{Name: "web", Count: 1, Percentage: 33.33}, m.TopProjects[1])
	// Null models are excluded entirely.
	assert.Empty(t, m.TopModels)
}

func TestUsage_TopTenTruncation(t *testing.T) {
	e, db := newTestEngine(t)
	for i := 0; i < 12; i++ {
		seed(t, db, withModel(session(t, fmt.Sprintf("s%d", i), "2026-01-01T00:00:00Z"), fmt.Sprintf("model-%02d", i)))
	}
	// model-00 gets a second session so it ranks first.
	seed(t, db, withModel(session(t, "extra", "2026-01-01T00:00:00Z"), "model-00"))

	m, err := e.Usage(context.Background(), filter.Filter{})
	require.NoError(t, err)

	require.Len(t, m.TopModels, 10)
	assert.Equal(t, "model-00", m.TopModels[0].Name)
	assert.Equal(t, int64(2), m.TopModels[0].Count)
	// Base is 13 across all groups, not only the ten shown.
	assert.InDelta(t, 15.38, m.TopModels[0].Percentage, 1e-9)
	assert.Equal(t, "model-01", m.TopModels[1].Name)
	assert.LessOrEqual(t, sumUsage(m.TopModels), 100.0)
}

func TestUsage_ToolsFanOut(t *testing.T) {
	e, db := newTestEngine(t)
	seed(t, db,
		withTools(session(t, "a", "2026-01-01T00:00:00Z"), "Read", "Edit", "Read"),
		withTools(session(t, "b", "2026-01-02T00:00:00Z"), "Read"),
		session(t, "c", "2026-01-03T00:00:00Z"),
	)

	m, err := e.Usage(context.Background(), filter.Filter{})
	require.NoError(t, err)

	require.Len(t, m.TopTools, 2)
	assert.Equal(t, UsageBreakdown{Name: "Read", Count: 3, Percentage: 75}, m.TopTools[0])
	assert.Equal(t, UsageBreakdown{Name: "Edit", Count: 1, Percentage: 25}, m.TopTools[1])
}
