package analytics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/usagelens/internal/filter"
)

// lengthBucket is a half-open duration interval [previous upper, upper).
// The last bucket has no upper bound.
type lengthBucket struct {
	label string
	upper float64
}

// SessionLengthBuckets are the session-length histogram buckets in order.
var SessionLengthBuckets = []lengthBucket{
	{label: "<1min", upper: 60},
	{label: "1-5min", upper: 300},
	{label: "5-15min", upper: 900},
	{label: "15-30min", upper: 1800},
	{label: "30-60min", upper: 3600},
	{label: ">1hour"},
}

// lengthBucketCase renders a CASE expression mapping col to the index of
// its bucket in SessionLengthBuckets.
func lengthBucketCase(col string) string {
	var b strings.Builder
	b.WriteString("CASE")
	last := len(SessionLengthBuckets) - 1
	for i, bk := range SessionLengthBuckets[:last] {
		b.WriteString(" WHEN " + col + " < " + strconv.FormatFloat(bk.upper, 'f', -1, 64) +
			" THEN " + strconv.Itoa(i))
	}
	b.WriteString(" ELSE " + strconv.Itoa(last) + " END")
	return b.String()
}

// Performance returns the session-length histogram, daily token throughput
// and cache statistics.
func (e *Engine) Performance(ctx context.Context, f filter.Filter) (p PerformanceMetrics, err error) {
	defer e.track(ctx, "performance", time.Now(), &err)

	pred := f.Compile("")
	if p.SessionLengths, err = e.sessionLengths(ctx, pred); err != nil {
		return PerformanceMetrics{}, err
	}

	p.TokenEfficiency, err = e.efficiencySeries(ctx,
		pred.With("duration_seconds > 0 AND "+tokensExpr+" > 0"))
	if err != nil {
		return PerformanceMetrics{}, err
	}

	var hits int64
	if err := e.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN cache_hit_count > 0 THEN 1 ELSE 0 END), 0)
		FROM sessions WHERE `+pred.SQL, pred.Args...).Scan(&p.CacheStats.TotalRequests, &hits); err != nil {
		return PerformanceMetrics{}, fmt.Errorf("querying cache stats: %w", err)
	}
	if p.CacheStats.TotalRequests > 0 {
		p.CacheStats.HitRate = float64(hits) / float64(p.CacheStats.TotalRequests)
	}
	return p, nil
}

// sessionLengths counts sessions with a known duration per bucket, sorted
// by count descending with ties kept in bucket order. Empty buckets are
// omitted.
func (e *Engine) sessionLengths(ctx context.Context, pred filter.Predicate) ([]NameValue, error) {
	counts, err := groupCounts(ctx, e.db, `
		SELECT `+lengthBucketCase("duration_seconds")+` AS bucket, COUNT(*)
		FROM sessions WHERE `+pred.With("duration_seconds IS NOT NULL").SQL+`
		GROUP BY bucket`, pred.Args)
	if err != nil {
		return nil, fmt.Errorf("querying session lengths: %w", err)
	}

	out := []NameValue{}
	for i, bk := range SessionLengthBuckets {
		if n := counts[strconv.Itoa(i)]; n > 0 {
			out = append(out, NameValue{Name: bk.label, Value: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out, nil
}
