package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/filter"
	"github.com/blackwell-systems/usagelens/internal/quality"
)

// Analytics is the read side the tools query.
type Analytics interface {
	Usage(ctx context.Context, f filter.Filter) (analytics.UsageMetrics, error)
	Cost(ctx context.Context, f filter.Filter) (analytics.CostAnalysis, error)
	Tokens(ctx context.Context, f filter.Filter) (analytics.TokenAnalysis, error)
	DailyUsage(ctx context.Context, f filter.Filter) ([]analytics.DailyUsagePoint, error)
	Distributions(ctx context.Context, f filter.Filter) (analytics.Distributions, error)
	Heatmap(ctx context.Context, f filter.Filter) (analytics.Heatmap, error)
	Performance(ctx context.Context, f filter.Filter) (analytics.PerformanceMetrics, error)
	Overview(ctx context.Context, f filter.Filter) (analytics.Overview, error)
	ListSessions(ctx context.Context, f filter.Filter) (analytics.SessionList, error)
	GetSession(ctx context.Context, sessionID string) (*analytics.SessionDetail, error)
}

// Auditor produces data quality reports.
type Auditor interface {
	Audit(ctx context.Context) (quality.Report, error)
}

// filterArgs mirrors the API's filter query parameters.
type filterArgs struct {
	DateFrom    string   `json:"dateFrom"`
	DateTo      string   `json:"dateTo"`
	ProjectName string   `json:"projectName"`
	ModelName   string   `json:"modelName"`
	SessionIDs  []string `json:"sessionIds"`
	Limit       *int     `json:"limit"`
	Offset      *int     `json:"offset"`
}

type sessionArgs struct {
	SessionID string `json:"sessionId"`
}

var (
	noArgsSchema = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)

	filterSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"dateFrom":{"type":"string","description":"Inclusive lower bound on start time (YYYY-MM-DD or RFC 3339)"},` +
		`"dateTo":{"type":"string","description":"Inclusive upper bound on start time; a bare date covers the whole day"},` +
		`"projectName":{"type":"string","description":"Exact project name"},` +
		`"modelName":{"type":"string","description":"Exact model name"},` +
		`"sessionIds":{"type":"array","items":{"type":"string"},"description":"Restrict to these session IDs"}` +
		`},"additionalProperties":false}`)

	listSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"dateFrom":{"type":"string"},"dateTo":{"type":"string"},` +
		`"projectName":{"type":"string"},"modelName":{"type":"string"},` +
		`"sessionIds":{"type":"array","items":{"type":"string"}},` +
		`"limit":{"type":"integer","minimum":0,"description":"Page size"},` +
		`"offset":{"type":"integer","minimum":0,"description":"Rows to skip"}` +
		`},"additionalProperties":false}`)

	sessionSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"sessionId":{"type":"string","description":"Session ID to inspect"}` +
		`},"required":["sessionId"],"additionalProperties":false}`)
)

// addTools registers every tool on s. All tools are read-only.
func addTools(s *Server) {
	a := s.analytics
	s.registerTool(toolDef{
		Name:        "get_usage",
		Description: "Session count, total cost and tokens, average duration and the top models, projects and tools.",
		InputSchema: filterSchema,
		Handler:     filtered(a.Usage),
	})
	s.registerTool(toolDef{
		Name:        "get_costs",
		Description: "Cost per day, week and month, cost by model and project, and the most expensive sessions.",
		InputSchema: filterSchema,
		Handler:     filtered(a.Cost),
	})
	s.registerTool(toolDef{
		Name:        "get_tokens",
		Description: "Token volume over time and by model and project, output/input ratio and tokens per minute.",
		InputSchema: filterSchema,
		Handler:     filtered(a.Tokens),
	})
	s.registerTool(toolDef{
		Name:        "get_daily_usage",
		Description: "Sessions, cost and tokens for each of the 30 most recent active days.",
		InputSchema: filterSchema,
		Handler:     filtered(a.DailyUsage),
	})
	s.registerTool(toolDef{
		Name:        "get_distributions",
		Description: "The ten most common models, tools and projects.",
		InputSchema: filterSchema,
		Handler:     filtered(a.Distributions),
	})
	s.registerTool(toolDef{
		Name:        "get_heatmap",
		Description: "Session starts by weekday and UTC hour.",
		InputSchema: filterSchema,
		Handler:     filtered(a.Heatmap),
	})
	s.registerTool(toolDef{
		Name:        "get_performance",
		Description: "Session length histogram, daily throughput and cache hit rate.",
		InputSchema: filterSchema,
		Handler:     filtered(a.Performance),
	})
	s.registerTool(toolDef{
		Name:        "get_overview",
		Description: "Usage, daily activity, distributions, heatmap and performance in one call.",
		InputSchema: filterSchema,
		Handler:     filtered(a.Overview),
	})
	s.registerTool(toolDef{
		Name:        "list_sessions",
		Description: "One page of sessions, newest first, with the total match count.",
		InputSchema: listSchema,
		Handler:     s.handleListSessions,
	})
	s.registerTool(toolDef{
		Name:        "get_session",
		Description: "The latest stored row for one session ID and its message count.",
		InputSchema: sessionSchema,
		Handler:     s.handleGetSession,
	})
	s.registerTool(toolDef{
		Name:        "get_data_quality",
		Description: "Data quality audit: duplicates, missing values, integrity violations, score and recommendations.",
		InputSchema: noArgsSchema,
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			if err := decodeArgs(args, &struct{}{}); err != nil {
				return nil, err
			}
			return s.auditor.Audit(ctx)
		},
	})
}

// filtered adapts a filter-taking query into a tool handler. Pagination is
// not accepted here; only list_sessions pages.
func filtered[T any](fn func(context.Context, filter.Filter) (T, error)) toolHandler {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		var fa filterArgs
		if err := decodeArgs(args, &fa); err != nil {
			return nil, err
		}
		if fa.Limit != nil || fa.Offset != nil {
			return nil, errors.New("limit and offset only apply to list_sessions")
		}
		f, err := fa.build()
		if err != nil {
			return nil, err
		}
		return fn(ctx, f)
	}
}

func (s *Server) handleListSessions(ctx context.Context, args json.RawMessage) (any, error) {
	var fa filterArgs
	if err := decodeArgs(args, &fa); err != nil {
		return nil, err
	}
	f, err := fa.build()
	if err != nil {
		return nil, err
	}
	if f.Limit == nil {
		f.Limit = lo.ToPtr(s.defaultLimit)
	}
	if f.Offset == nil {
		f.Offset = lo.ToPtr(0)
	}
	return s.analytics.ListSessions(ctx, f)
}

func (s *Server) handleGetSession(ctx context.Context, args json.RawMessage) (any, error) {
	var sa sessionArgs
	if err := decodeArgs(args, &sa); err != nil {
		return nil, err
	}
	if sa.SessionID == "" {
		return nil, errors.New("sessionId is required")
	}
	d, err := s.analytics.GetSession(ctx, sa.SessionID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("session %s not found", sa.SessionID)
	}
	return d, nil
}

// decodeArgs rejects properties the schema does not declare.
func decodeArgs(args json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (fa filterArgs) build() (filter.Filter, error) {
	var f filter.Filter
	if fa.DateFrom != "" {
		t, err := filter.ParseDate(fa.DateFrom, false)
		if err != nil {
			return f, fmt.Errorf("dateFrom: %w", err)
		}
		f.DateFrom = &t
	}
	if fa.DateTo != "" {
		t, err := filter.ParseDate(fa.DateTo, true)
		if err != nil {
			return f, fmt.Errorf("dateTo: %w", err)
		}
		f.DateTo = &t
	}
	if fa.ProjectName != "" {
		f.ProjectName = lo.ToPtr(fa.ProjectName)
	}
	if fa.ModelName != "" {
		f.ModelName = lo.ToPtr(fa.ModelName)
	}
	if ids := lo.Uniq(lo.Compact(fa.SessionIDs)); len(ids) > 0 {
		f.SessionIDs = ids
	}
	if fa.Limit != nil && *fa.Limit < 0 {
		return f, errors.New("limit must be non-negative")
	}
	if fa.Offset != nil && *fa.Offset < 0 {
		return f, errors.New("offset must be non-negative")
	}
	f.Limit, f.Offset = fa.Limit, fa.Offset
	return f, nil
}
