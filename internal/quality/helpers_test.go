package quality

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/usagelens/internal/store"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestAuditor(db *store.DB) *Auditor {
	return NewAuditor(db.Conn(), WithClock(func() time.Time { return fixedNow }))
}

// cleanSession returns a session with no audit findings.
func cleanSession(id string, i int) *store.Session {
	started := fixedNow.Add(-time.Duration(i+1) * time.Hour)
	ended := started.Add(30 * time.Minute)
	duration := 1800.0
	return &store.Session{
		SessionID:         id,
		StartedAt:         started,
		EndedAt:           &ended,
		DurationSeconds:   &duration,
		TotalCostUSD:      0.5,
		TotalInputTokens:  1000,
		TotalOutputTokens: 200,
		CreatedAt:         started,
	}
}

func seedClean(t *testing.T, db *store.DB, n int) []*store.Session {
	t.Helper()
	out := make([]*store.Session, 0, n)
	for i := 0; i < n; i++ {
		s := cleanSession(fmt.Sprintf("clean-%d", i), i)
		require.NoError(t, db.InsertSession(context.Background(), s))
		out = append(out, s)
	}
	return out
}

func insert(t *testing.T, db *store.DB, s *store.Session) {
	t.Helper()
	require.NoError(t, db.InsertSession(context.Background(), s))
}

func count(t *testing.T, db *store.DB, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Conn().QueryRow(query, args...).Scan(&n))
	return n
}
