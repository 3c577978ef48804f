package analytics

import (
	"context"
	"database/sql"
	"fmt"
)

// collect runs query and scans every row with scan. Rows are fully drained
// and closed before returning so the connection is free for the next query.
func collect[T any](ctx context.Context, db Querier, query string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type groupCount struct {
	name  string
	count int64
}

// groupCounts runs a two-column (name, count) grouping query.
func groupCounts(ctx context.Context, db Querier, query string, args []any) (map[string]int64, error) {
	rows, err := collect(ctx, db, query, args, func(r *sql.Rows) (groupCount, error) {
		var g groupCount
		err := r.Scan(&g.name, &g.count)
		return g, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, g := range rows {
		out[g.name] += g.count
	}
	return out, nil
}

type groupValue struct {
	name  string
	value float64
}

// groupValues runs a two-column (name, summed value) grouping query.
func groupValues(ctx context.Context, db Querier, query string, args []any) (map[string]float64, error) {
	rows, err := collect(ctx, db, query, args, func(r *sql.Rows) (groupValue, error) {
		var g groupValue
		err := r.Scan(&g.name, &g.value)
		return g, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, g := range rows {
		out[g.name] += g.value
	}
	return out, nil
}
