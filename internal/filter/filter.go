// Package filter compiles analytics filter options into parameterized SQL
// predicates. Values are always passed as positional arguments; nothing is
// ever interpolated into SQL text.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/usagelens/internal/store"
)

// Filter narrows the session set an analytics query operates on. A nil
// field does not constrain the result.
type Filter struct {
	DateFrom    *time.Time `json:"dateFrom,omitempty"`
	DateTo      *time.Time `json:"dateTo,omitempty"`
	ProjectName *string    `json:"projectName,omitempty"`
	ModelName   *string    `json:"modelName,omitempty"`
	SessionIDs  []string   `json:"sessionIds,omitempty"`
	Limit       *int       `json:"limit,omitempty"`
	Offset      *int       `json:"offset,omitempty"`
}

// Predicate is a compiled WHERE clause body and its positional arguments.
type Predicate struct {
	SQL  string
	Args []any
}

// Compile renders the filter as a predicate over the sessions table. When
// alias is non-empty, columns are qualified with it (alias "s" yields
// s.started_at). Clauses and arguments appear in a fixed order: date_from,
// date_to, project, model, session ids.
func (f Filter) Compile(alias string) Predicate {
	col := func(name string) string {
		if alias == "" {
			return name
		}
		return alias + "." + name
	}

	var clauses []string
	var args []any

	if f.DateFrom != nil {
		clauses = append(clauses, col("started_at")+" >= ?")
		args = append(args, store.FormatTime(*f.DateFrom))
	}
	if f.DateTo != nil {
		clauses = append(clauses, col("started_at")+" <= ?")
		args = append(args, store.FormatTime(*f.DateTo))
	}
	if f.ProjectName != nil {
		clauses = append(clauses, col("project_name")+" = ?")
		args = append(args, *f.ProjectName)
	}
	if f.ModelName != nil {
		clauses = append(clauses, col("model_name")+" = ?")
		args = append(args, *f.ModelName)
	}
	if len(f.SessionIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.SessionIDs)), ", ")
		clauses = append(clauses, col("session_id")+" IN ("+placeholders+")")
		for _, id := range f.SessionIDs {
			args = append(args, id)
		}
	}

	if len(clauses) == 0 {
		return Predicate{SQL: "1 = 1", Args: []any{}}
	}
	return Predicate{SQL: strings.Join(clauses, " AND "), Args: args}
}

// With returns a copy of p with clause ANDed on. The extra args follow the
// existing ones.
func (p Predicate) With(clause string, args ...any) Predicate {
	out := Predicate{
		SQL:  p.SQL + " AND " + clause,
		Args: make([]any, 0, len(p.Args)+len(args)),
	}
	out.Args = append(out.Args, p.Args...)
	out.Args = append(out.Args, args...)
	return out
}

// Page renders the LIMIT/OFFSET tail for list queries, including its
// leading space. It is empty when neither limit nor offset is set.
func (f Filter) Page() (string, []any) {
	switch {
	case f.Limit != nil && f.Offset != nil:
		return " LIMIT ? OFFSET ?", []any{*f.Limit, *f.Offset}
	case f.Limit != nil:
		return " LIMIT ?", []any{*f.Limit}
	case f.Offset != nil:
		return " LIMIT -1 OFFSET ?", []any{*f.Offset}
	default:
		return "", nil
	}
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return f.DateFrom == nil && f.DateTo == nil && f.ProjectName == nil &&
		f.ModelName == nil && len(f.SessionIDs) == 0 && f.Limit == nil && f.Offset == nil
}

// DateLayout is the bare calendar date form accepted by ParseDate.
const DateLayout = "2006-01-02"

// ParseDate parses a filter bound given as a bare date (2006-01-02) or an
// RFC 3339 timestamp. A bare date resolves to the start of that UTC day, or
// to its last nanosecond when endOfDay is set, so an inclusive upper bound
// covers the whole day.
func ParseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		if endOfDay {
			return t.Add(24*time.Hour - time.Nanosecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}
