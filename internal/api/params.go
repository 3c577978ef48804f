package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/blackwell-systems/usagelens/internal/filter"
)

// parseFilter reads filter options from query parameters. sessionIds may be
// repeated or comma separated.
func parseFilter(q url.Values) (filter.Filter, error) {
	var f filter.Filter

	if v := q.Get("dateFrom"); v != "" {
		t, err := filter.ParseDate(v, false)
		if err != nil {
			return f, fmt.Errorf("dateFrom: %w", err)
		}
		f.DateFrom = &t
	}
	if v := q.Get("dateTo"); v != "" {
		t, err := filter.ParseDate(v, true)
		if err != nil {
			return f, fmt.Errorf("dateTo: %w", err)
		}
		f.DateTo = &t
	}
	if v := q.Get("projectName"); v != "" {
		f.ProjectName = &v
	}
	if v := q.Get("modelName"); v != "" {
		f.ModelName = &v
	}

	ids := lo.FlatMap(q["sessionIds"], func(v string, _ int) []string {
		return strings.Split(v, ",")
	})
	ids = lo.Uniq(lo.Compact(lo.Map(ids, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))
	if len(ids) > 0 {
		f.SessionIDs = ids
	}

	var err error
	if f.Limit, err = nonNegativeInt(q, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = nonNegativeInt(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func nonNegativeInt(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s: want a non-negative integer, got %q", key, v)
	}
	return &n, nil
}
