package analytics

import (
	"time"

	"github.com/blackwell-systems/usagelens/internal/store"
)

// UsageBreakdown is one ranked entry of a usage breakdown. Percentage is
// relative to the breakdown's own total, not to TotalSessions.
type UsageBreakdown struct {
	Name       string  `json:"name"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// UsageMetrics summarizes the filtered session set.
type UsageMetrics struct {
	TotalSessions          int64            `json:"totalSessions"`
	TotalCost              float64          `json:"totalCost"`
	TotalInputTokens       int64            `json:"totalInputTokens"`
	TotalOutputTokens      int64            `json:"totalOutputTokens"`
	AverageSessionDuration float64          `json:"averageSessionDuration"`
	TopModels              []UsageBreakdown `json:"topModels"`
	TopProjects            []UsageBreakdown `json:"topProjects"`
	TopTools               []UsageBreakdown `json:"topTools"`
}

// TimeSeriesPoint is one bucket of a time series.
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Count int64   `json:"count"`
}

// TimeSeries holds the same metric at three granularities, each ascending.
type TimeSeries struct {
	Daily   []TimeSeriesPoint `json:"daily"`
	Weekly  []TimeSeriesPoint `json:"weekly"`
	Monthly []TimeSeriesPoint `json:"monthly"`
}

// ValueBreakdown is a grouped total. Percentage is relative to the grand
// total of the filtered set.
type ValueBreakdown struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// SessionSummary is the API shape of one session row.
type SessionSummary struct {
	ID                string     `json:"id"`
	SessionID         string     `json:"sessionId"`
	ProjectName       *string    `json:"projectName"`
	StartedAt         time.Time  `json:"startedAt"`
	EndedAt           *time.Time `json:"endedAt"`
	DurationSeconds   *float64   `json:"durationSeconds"`
	TotalCostUSD      float64    `json:"totalCostUsd"`
	TotalInputTokens  int64      `json:"totalInputTokens"`
	TotalOutputTokens int64      `json:"totalOutputTokens"`
	ModelName         *string    `json:"modelName"`
	ToolsUsed         []string   `json:"toolsUsed"`
	CacheHitCount     int64      `json:"cacheHitCount"`
	CacheMissCount    int64      `json:"cacheMissCount"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func summaryFromSession(s *store.Session) SessionSummary {
	tools := s.ToolsUsed
	if tools == nil {
		tools = []string{}
	}
	return SessionSummary{
		ID:                s.ID,
		SessionID:         s.SessionID,
		ProjectName:       s.ProjectName,
		StartedAt:         s.StartedAt,
		EndedAt:           s.EndedAt,
		DurationSeconds:   s.DurationSeconds,
		TotalCostUSD:      s.TotalCostUSD,
		TotalInputTokens:  s.TotalInputTokens,
		TotalOutputTokens: s.TotalOutputTokens,
		ModelName:         s.ModelName,
		ToolsUsed:         tools,
		CacheHitCount:     s.CacheHitCount,
		CacheMissCount:    s.CacheMissCount,
		CreatedAt:         s.CreatedAt,
	}
}

// CostAnalysis breaks spend down over time, model and project.
type CostAnalysis struct {
	TimeSeries    TimeSeries       `json:"timeSeries"`
	ByModel       []ValueBreakdown `json:"byModel"`
	ByProject     []ValueBreakdown `json:"byProject"`
	MostExpensive []SessionSummary `json:"mostExpensive"`
}

// RatioPoint is the per-day output/input token ratio.
type RatioPoint struct {
	Date  string  `json:"date"`
	Ratio float64 `json:"ratio"`
}

// EfficiencyPoint is the per-day average throughput in tokens per minute.
type EfficiencyPoint struct {
	Date            string  `json:"date"`
	TokensPerMinute float64 `json:"tokensPerMinute"`
	Sessions        int64   `json:"sessions"`
}

// TokenAnalysis breaks token volume down over time, model and project.
type TokenAnalysis struct {
	TimeSeries      TimeSeries        `json:"timeSeries"`
	ByModel         []ValueBreakdown  `json:"byModel"`
	ByProject       []ValueBreakdown  `json:"byProject"`
	EfficiencyRatio []RatioPoint      `json:"efficiencyRatio"`
	Efficiency      []EfficiencyPoint `json:"efficiency"`
}

// DailyUsagePoint aggregates one calendar day.
type DailyUsagePoint struct {
	Date         string  `json:"date"`
	Sessions     int64   `json:"sessions"`
	Cost         float64 `json:"cost"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
}

// NameValue is a ranked categorical count.
type NameValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Distributions holds top categorical counts.
type Distributions struct {
	Models   []NameValue `json:"models"`
	Tools    []NameValue `json:"tools"`
	Projects []NameValue `json:"projects"`
}

// HeatmapCell is the session count for one day-of-week and hour.
type HeatmapCell struct {
	Day   string `json:"day"`
	Hour  int    `json:"hour"`
	Value int64  `json:"value"`
}

// Heatmap is sparse: cells with no sessions are absent.
type Heatmap struct {
	Cells []HeatmapCell `json:"cells"`
}

// Weekdays are the heatmap day labels, indexed 0=Sunday.
var Weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Grid densifies the heatmap into a day-by-hour matrix, zero-filling
// absent cells. Rows follow Weekdays.
func (h Heatmap) Grid() [7][24]int {
	var grid [7][24]int
	for _, c := range h.Cells {
		for d, name := range Weekdays {
			if name == c.Day && c.Hour >= 0 && c.Hour < 24 {
				grid[d][c.Hour] += int(c.Value)
			}
		}
	}
	return grid
}

// CacheStats approximates cache effectiveness. HitRate is the fraction of
// sessions with at least one cache hit.
type CacheStats struct {
	HitRate       float64 `json:"hitRate"`
	TotalRequests int64   `json:"totalRequests"`
}

// PerformanceMetrics covers session length, throughput and caching.
type PerformanceMetrics struct {
	SessionLengths  []NameValue       `json:"sessionLengths"`
	TokenEfficiency []EfficiencyPoint `json:"tokenEfficiency"`
	CacheStats      CacheStats        `json:"cacheStats"`
}

// SessionList is one page of sessions. Total ignores pagination.
type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int64            `json:"total"`
	HasMore  bool             `json:"hasMore"`
}

// SessionDetail is a session plus its raw message count.
type SessionDetail struct {
	SessionSummary
	MessageCount int64 `json:"messageCount"`
}

// Overview bundles the dashboard projections.
type Overview struct {
	Usage         UsageMetrics       `json:"usage"`
	Daily         []DailyUsagePoint  `json:"daily"`
	Distributions Distributions      `json:"distributions"`
	Heatmap       Heatmap            `json:"heatmap"`
	Performance   PerformanceMetrics `json:"performance"`
}
