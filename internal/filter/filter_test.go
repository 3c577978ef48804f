package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestCompile_EmptyFilterMatchesAll(t *testing.T) {
	p := Filter{}.Compile("")
	assert.Equal(t, "1 = 1", p.SQL)
	assert.Empty(t, p.Args)
}

func TestCompile_FixedClauseOrder(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 23, 59, 59, 999999999, time.UTC)
	f := Filter{
		SessionIDs:  []string{"a", "b"},
		ModelName:   ptr("opus"),
		ProjectName: ptr("api"),
		DateTo:      &to,
		DateFrom:    &from,
	}

	p := f.Compile("")
	assert.Equal(t,
		"started_at >= ? AND started_at <= ? AND project_name = ? AND model_name = ? AND session_id IN (?, ?)",
		p.SQL)
	assert.Equal(t, []any{"2026-01-01T00:00:00.000000000Z", "2026-01-31T23:59:59.999999999Z", "api", "opus", "a", "b"}, p.Args)
}

func TestCompile_Alias(t *testing.T) {
	p := Filter{ProjectName: ptr("api")}.Compile("s")
	assert.Equal(t, "s.project_name = ?", p.SQL)
	assert.Equal(t, []any{"api"}, p.Args)
}

func TestCompile_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	from := time.Date(2026, 6, 1, 2, 0, 0, 0, loc)
	p := Filter{DateFrom: &from}.Compile("")
	assert.Equal(t, []any{"2026-06-01T00:00:00.000000000Z"}, p.Args)
}

func TestCompile_ValuesNeverInSQL(t *testing.T) {
	hostile := "x' OR '1'='1"
	p := Filter{ProjectName: &hostile, SessionIDs: []string{hostile}}.Compile("")
	assert.NotContains(t, p.SQL, hostile)
	assert.Equal(t, []any{hostile, hostile}, p.Args)
}

func TestPredicateWith_AppendsArgs(t *testing.T) {
	base := Filter{ModelName: ptr("opus")}.Compile("")
	ext := base.With("duration_seconds IS NOT NULL AND total_cost_usd > ?", 1.5)

	assert.Equal(t, "model_name = ? AND duration_seconds IS NOT NULL AND total_cost_usd > ?", ext.SQL)
	assert.Equal(t, []any{"opus", 1.5}, ext.Args)
	// The receiver is unchanged.
	assert.Equal(t, "model_name = ?", base.SQL)
	assert.Equal(t, []any{"opus"}, base.Args)
}

func TestPage(t *testing.T) {
	tests := []struct {
		name     string
		f        Filter
		wantSQL  string
		wantArgs []any
	}{
		{"none", Filter{}, "", nil},
		{"limit only", Filter{Limit: ptr(10)}, " LIMIT ?", []any{10}},
		{"offset only", Filter{Offset: ptr(5)}, " LIMIT -1 OFFSET ?", []any{5}},
		{"both", Filter{Limit: ptr(10), Offset: ptr(20)}, " LIMIT ? OFFSET ?", []any{10, 20}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql, args := tc.f.Page()
			assert.Equal(t, tc.wantSQL, sql)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Filter{}.IsEmpty())
	assert.True(t, Filter{SessionIDs: []string{}}.IsEmpty())
	assert.False(t, Filter{Limit: ptr(1)}.IsEmpty())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		endOfDay bool
		want     string
		wantErr  bool
	}{
		{"bare date start", "2026-03-01", false, "2026-03-01T00:00:00Z", false},
		{"bare date end", "2026-03-01", true, "2026-03-01T23:59:59.999999999Z", false},
		{"rfc3339 unchanged by endOfDay", "2026-03-01T10:00:00Z", true, "2026-03-01T10:00:00Z", false},
		{"offset normalized", "2026-03-01T10:00:00+02:00", false, "2026-03-01T08:00:00Z", false},
		{"fraction kept", "2026-03-01T10:00:00.25Z", false, "2026-03-01T10:00:00.25Z", false},
		{"garbage", "last tuesday", false, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDate(tc.in, tc.endOfDay)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got.Format(time.RFC3339Nano))
		})
	}
}
