package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestOpen_CreatesParentDirAndMigrates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "usagelens.db")

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var version int
	require.NoError(t, db.Conn().QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())

	var rows int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestInsertSession_RoundTrip(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	ended := started.Add(25 * time.Minute)
	in := &Session{
		SessionID:         "abc",
		ProjectName:       strPtr("usagelens"),
		StartedAt:         started,
		EndedAt:           &ended,
		DurationSeconds:   floatPtr(1500),
		TotalCostUSD:      1.25,
		TotalInputTokens:  1000,
		TotalOutputTokens: 400,
		ModelName:         strPtr("claude-sonnet-4"),
		ToolsUsed:         []string{"Read", "Edit", "Read"},
		CacheHitCount:     3,
		CacheMissCount:    1,
	}
	require.NoError(t, db.InsertSession(ctx, in))
	assert.NotEmpty(t, in.ID)
	assert.False(t, in.CreatedAt.IsZero())

	row := db.Conn().QueryRow("SELECT "+SessionColumns+" FROM sessions WHERE id = ?", in.ID)
	out, err := ScanSession(row)
	require.NoError(t, err)

	assert.Equal(t, in.SessionID, out.SessionID)
	assert.Equal(t, "usagelens", *out.ProjectName)
	assert.True(t, started.Equal(out.StartedAt))
	require.NotNil(t, out.EndedAt)
	assert.True(t, ended.Equal(*out.EndedAt))
	assert.InDelta(t, 1500, *out.DurationSeconds, 0.001)
	assert.InDelta(t, 1.25, out.TotalCostUSD, 0.0001)
	assert.Equal(t, []string{"Read", "Edit", "Read"}, out.ToolsUsed)
	assert.Equal(t, int64(3), out.CacheHitCount)
}

func TestInsertSession_NullableColumns(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	in := &Session{SessionID: "bare", StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, db.InsertSession(ctx, in))

	out, err := ScanSession(db.Conn().QueryRow("SELECT "+SessionColumns+" FROM sessions WHERE id = ?", in.ID))
	require.NoError(t, err)
	assert.Nil(t, out.ProjectName)
	assert.Nil(t, out.ModelName)
	assert.Nil(t, out.EndedAt)
	assert.Nil(t, out.DurationSeconds)
	assert.Equal(t, []string{}, out.ToolsUsed)
}

func TestInsertSessionMetrics_AllowsDanglingReference(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id, err := db.InsertSessionMetrics(context.Background(), &SessionMetrics{
		SessionRef:   "does-not-exist",
		DateBucket:   "2026-01-01",
		MessageCount: 4,
	})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := InsertSession(ctx, tx, &Session{SessionID: "x", StartedAt: time.Now()}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var n int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n))
	assert.Zero(t, n)
}

func TestDecodeTools(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty string", "", []string{}},
		{"empty array", "[]", []string{}},
		{"null", "null", []string{}},
		{"malformed", "{not json", []string{}},
		{"ordered", `["Bash","Read"]`, []string{"Bash", "Read"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecodeTools(tc.raw))
		})
	}
}

func TestParseTime_AcceptsRFC3339Variants(t *testing.T) {
	want := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	got, err := ParseTime("2026-05-02T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTime("2026-05-02T12:00:00.000+02:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}

func TestFormatTime_FixedWidthKeepsSubSecondOrder(t *testing.T) {
	base := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(900 * time.Millisecond),
		base.Add(time.Second),
	}

	prev := ""
	for _, ts := range times {
		s := FormatTime(ts)
		assert.Len(t, s, len(TimeLayout))
		assert.Greater(t, s, prev)
		prev = s

		got, err := ParseTime(s)
		require.NoError(t, err)
		assert.True(t, ts.Equal(got), "round trip of %s", s)
	}
}

func TestMigrate_WidensSecondPrecisionTimestamps(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	in := &Session{SessionID: "old", StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, db.InsertSession(context.Background(), in))
	_, err = db.Conn().Exec(`UPDATE sessions SET started_at = '2026-01-01T00:00:00Z',
		ended_at = '2026-01-01T00:30:00Z', created_at = '2026-01-01T00:30:01Z' WHERE id = ?`, in.ID)
	require.NoError(t, err)
	_, err = db.Conn().Exec("UPDATE schema_version SET version = 1")
	require.NoError(t, err)

	require.NoError(t, db.Migrate())

	var started, ended, created string
	require.NoError(t, db.Conn().QueryRow(
		"SELECT started_at, ended_at, created_at FROM sessions WHERE id = ?", in.ID,
	).Scan(&started, &ended, &created))
	assert.Equal(t, "2026-01-01T00:00:00.000000000Z", started)
	assert.Equal(t, "2026-01-01T00:30:00.000000000Z", ended)
	assert.Equal(t, "2026-01-01T00:30:01.000000000Z", created)

	var version int
	require.NoError(t, db.Conn().QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestScanSession_MalformedTimestamp(t *testing.T) {
	for _, column := range []string{"started_at", "ended_at", "created_at"} {
		t.Run(column, func(t *testing.T) {
			db, err := OpenInMemory()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			in := &Session{SessionID: "bad", StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
			require.NoError(t, db.InsertSession(context.Background(), in))
			_, err = db.Conn().Exec("UPDATE sessions SET "+column+" = 'not a time' WHERE id = ?", in.ID)
			require.NoError(t, err)

			out, err := ScanSession(db.Conn().QueryRow("SELECT "+SessionColumns+" FROM sessions WHERE id = ?", in.ID))
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Contains(t, err.Error(), "parsing "+column)
			var perr *time.ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}
