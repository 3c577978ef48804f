package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/usagelens/internal/store"
)

func ptr[T any](v T) *T { return &v }

// at parses an RFC 3339 timestamp, failing the test on error.
func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return ts
}

func newTestEngine(t *testing.T) (*Engine, *store.DB) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db.Conn()), db
}

func seed(t *testing.T, db *store.DB, sessions ...*store.Session) {
	t.Helper()
	for _, s := range sessions {
		require.NoError(t, db.InsertSession(context.Background(), s))
	}
}

// session builds a minimal valid session row.
func session(t *testing.T, id, started string) *store.Session {
	return &store.Session{SessionID: id, StartedAt: at(t, started)}
}

func withModel(s *store.Session, model string) *store.Session {
	s.ModelName = &model
	return s
}

func withProject(s *store.Session, project string) *store.Session {
	s.ProjectName = &project
	return s
}

func withCost(s *store.Session, cost float64) *store.Session {
	s.TotalCostUSD = cost
	return s
}

func withTokens(s *store.Session, in, out int64) *store.Session {
	s.TotalInputTokens = in
	s.TotalOutputTokens = out
	return s
}

func withDuration(s *store.Session, seconds float64) *store.Session {
	s.DurationSeconds = &seconds
	return s
}

func withTools(s *store.Session, tools ...string) *store.Session {
	s.ToolsUsed = tools
	return s
}

func sumUsage(b []UsageBreakdown) float64 {
	var total float64
	for _, e := range b {
		total += e.Percentage
	}
	return total
}

func sumValues(b []ValueBreakdown) float64 {
	var total float64
	for _, e := range b {
		total += e.Percentage
	}
	return total
}
