package quality

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/usagelens/internal/store"
)

func TestAudit_EmptyStore(t *testing.T) {
	db := newTestStore(t)

	r, err := newTestAuditor(db).Audit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Counts{}, r.Counts)
	assert.Equal(t, 100, r.CompletenessScore)
	assert.Equal(t, "A", r.Grade)
	assert.NotNil(t, r.Duplicates)
	assert.Empty(t, r.Duplicates)
	assert.NotNil(t, r.Recommendations)
	assert.Empty(t, r.Recommendations)
}

func TestAudit_CleanDatasetScores100(t *testing.T) {
	db := newTestStore(t)
	seedClean(t, db, 20)

	r, err := newTestAuditor(db).Audit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(20), r.Counts.TotalSessions)
	assert.Equal(t, int64(20), r.Counts.CompleteSessions)
	assert.Zero(t, r.TotalIssues)
	assert.Equal(t, 100, r.CompletenessScore)
	assert.Equal(t, "A", r.Grade)
	assert.Empty(t, r.Recommendations)
}

func TestAudit_Duplicates(t *testing.T) {
	db := newTestStore(t)
	seedClean(t, db, 2)
	for i := 0; i < 3; i++ {
		s := cleanSession("abc", i)
		s.CreatedAt = fixedNow.Add(-time.Duration(10-i) * time.Minute)
		insert(t, db, s)
	}
	for i := 0; i < 2; i++ {
		insert(t, db, cleanSession("xyz", i))
	}

	r, err := newTestAuditor(db).Audit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), r.Counts.DuplicateSessions)
	assert.Equal(t, int64(3), r.Counts.RedundantRows)
	require.Len(t, r.Duplicates, 2)
	assert.Equal(t, "abc", r.Duplicates[0].SessionID)
	assert.Equal(t, int64(3), r.Duplicates[0].Count)
	assert.True(t, r.Duplicates[0].FirstSeen.Equal(fixedNow.Add(-10*time.Minute)))
	assert.True(t, r.Duplicates[0].LastSeen.Equal(fixedNow.Add(-8*time.Minute)))
	assert.Equal(t, "xyz", r.Duplicates[1].SessionID)

	require.NotEmpty(t, r.Recommendations)
	rec := r.Recommendations[0]
	assert.Equal(t, TypeError, rec.Type)
	assert.Equal(t, "Duplicate Sessions Detected", rec.Title)
	assert.Equal(t, int64(3), rec.AffectedRecords)
	require.NotNil(t, rec.Action)
	assert.Equal(t, ActionDeduplicate, *rec.Action)
}

func TestAudit_DuplicateWithMalformedCreatedAt(t *testing.T) {
	db := newTestStore(t)
	first := cleanSession("abc", 0)
	insert(t, db, first)
	insert(t, db, cleanSession("abc", 1))
	_, err := db.Conn().Exec("UPDATE sessions SET created_at = 'not a time' WHERE id = ?", first.ID)
	require.NoError(t, err)

	_, err = newTestAuditor(db).Audit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate group abc")
	var perr *time.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestAudit_DuplicateTimesKeepSubSecondPrecision(t *testing.T) {
	db := newTestStore(t)
	base := fixedNow.Add(-time.Hour)
	for _, ms := range []time.Duration{100, 900} {
		s := cleanSession("abc", 0)
		s.CreatedAt = base.Add(ms * time.Millisecond)
		insert(t, db, s)
	}

	r, err := newTestAuditor(db).Audit(context.Background())
	require.NoError(t, err)
	require.Len(t, r.Duplicates, 1)
	assert.True(t, r.Duplicates[0].FirstSeen.Equal(base.Add(100*time.Millisecond)))
	assert.True(t, r.Duplicates[0].LastSeen.Equal(base.Add(900*time.Millisecond)))
}

func TestAudit_DuplicateGroupsCappedAt50(t *testing.T) {
	db := newTestStore(t)
	for g := 0; g < 55; g++ {
		for i := 0; i < 2; i++ {
			insert(t, db, cleanSession(fmt.Sprintf("dup-%02d", g), i))
		}
	}

	r, err := newTestAuditor(db).Audit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(55), r.Counts.DuplicateSessions)
	assert.Len(t, r.Duplicates, 50)
}

func TestAudit_NegativeCost(t *testing.T) {
	db := newTestStore(t)
	seedClean(t, db, 3)
	bad := cleanSession("negative", 0)
	bad.TotalCostUSD = -5
	insert(t, db, bad)

	r, err := newTestAuditor(db).Audit(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, r.DataIntegrity.NegativeCosts, int64(1))

	var found *Recommendation
	for i := range r.Recommendations {
		if r.Recommendations[i].Title == "Invalid Data Values" {
			found = &r.Recommendations[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, TypeError, found.Type)
	assert.GreaterOrEqual(t, found.AffectedRecords, int64(1))
}

func TestAudit_MissingAndIntegrityCounts(t *testing.T) {
	db := newTestStore(t)
	start := fixedNow.Add(-2 * time.Hour)
	before := start.Add(-time.Minute)
	future := fixedNow.Add(time.Hour)
	negDuration := -10.0

	insert(t, db, &store.Session{SessionID: "bare", StartedAt: start})
	insert(t, db, &store.Session{SessionID: "backwards", StartedAt: start, EndedAt: &before, TotalCostUSD: 1, TotalInputTokens: 1})
	insert(t, db, &store.Session{SessionID: "future", StartedAt: future, TotalCostUSD: 1, TotalOutputTokens: 1})
	insert(t, db, &store.Session{SessionID: "negdur", StartedAt: start, DurationSeconds: &negDuration, TotalCostUSD: 1, TotalInputTokens: -3})

	r, err := newTestAuditor(db).Audit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, MissingData{
		MissingEndTime:  3,
		MissingDuration: 3,
		MissingTokens:   1,
		MissingCost:     1,
	}, r.MissingData)
	assert.Equal(t, DataIntegrity{
		NegativeTokens:    1,
		NegativeCosts:     0,
		NegativeDurations: 1,
		FutureTimestamps:  1,
		InvalidTimeRanges: 1,
	}, r.DataIntegrity)
	assert.Equal(t, int64(12), r.TotalIssues)
	assert.Zero(t, r.Counts.CompleteSessions)
	// Issues exceed sessions, so the score clamps at 0.
	assert.Equal(t, 0, r.CompletenessScore)
	assert.Equal(t, "F", r.Grade)

	titles := make([]string, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		titles = append(titles, rec.Title)
	}
	assert.Equal(t, []string{"Incomplete Sessions", "Invalid Data Values"}, titles)
}

func TestAudit_OrphansAndMessages(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	sessions := seedClean(t, db, 2)

	_, err := db.InsertSessionMetrics(ctx, &store.SessionMetrics{SessionRef: sessions[0].ID, MessageCount: 4})
	require.NoError(t, err)
	_, err = db.InsertSessionMetrics(ctx, &store.SessionMetrics{SessionRef: sessions[1].ID, MessageCount: 0})
	require.NoError(t, err)
	_, err = db.InsertSessionMetrics(ctx, &store.SessionMetrics{SessionRef: "gone", MessageCount: 2})
	require.NoError(t, err)
	_, err = db.InsertRawMessage(ctx, &store.RawMessage{SessionRef: sessions[0].ID, Role: "user"})
	require.NoError(t, err)

	r, err := newTestAuditor(db).Audit(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), r.Counts.OrphanedMetrics)
	assert.Equal(t, int64(2), r.Counts.MetricsWithoutMessages)
	assert.Equal(t, int64(1), r.MissingData.ZeroMessageMetrics)
}

func TestAudit_ScoreMonotonicUnderDefects(t *testing.T) {
	db := newTestStore(t)
	sessions := seedClean(t, db, 40)
	auditor := newTestAuditor(db)
	ctx := context.Background()

	r, err := auditor.Audit(ctx)
	require.NoError(t, err)
	require.Equal(t, 100, r.CompletenessScore)
	prev := r.CompletenessScore

	defects := []string{
		"UPDATE sessions SET ended_at = NULL WHERE id = ?",
		"UPDATE sessions SET duration_seconds = NULL WHERE id = ?",
		"UPDATE sessions SET total_cost_usd = -1 WHERE id = ?",
		"UPDATE sessions SET total_cost_usd = 0 WHERE id = ?",
		"UPDATE sessions SET total_input_tokens = 0, total_output_tokens = 0 WHERE id = ?",
		"UPDATE sessions SET started_at = '2030-01-01T00:00:00.000000000Z' WHERE id = ?",
	}
	for i := 0; i < 30; i++ {
		_, err := db.Conn().Exec(defects[i%len(defects)], sessions[i].ID)
		require.NoError(t, err)

		r, err := auditor.Audit(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, r.CompletenessScore, prev, "after defect %d", i)
		prev = r.CompletenessScore
	}
	assert.Less(t, prev, 100)
}

func TestAudit_ExcellentQuality(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := 0; i < 1001; i++ {
			if err := store.InsertSession(ctx, tx, cleanSession(fmt.Sprintf("s%d", i), i)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	r, err := newTestAuditor(db).Audit(ctx)
	require.NoError(t, err)

	require.Len(t, r.Recommendations, 1)
	assert.Equal(t, TypeInfo, r.Recommendations[0].Type)
	assert.Equal(t, "Excellent Data Quality", r.Recommendations[0].Title)
	assert.Zero(t, r.Recommendations[0].AffectedRecords)
}
