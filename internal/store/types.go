// Package store provides SQLite access for session records and their
// derived metrics and message rows.
package store

import "time"

// TimeLayout is the layout every timestamp column is written in. All
// values are UTC with a fixed nine-digit fraction, so string comparison
// orders them chronologically down to the nanosecond.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Session is one row of the sessions table.
type Session struct {
	// ID is the internal identity referenced by metrics and messages.
	ID string `json:"id"`
	// SessionID is the business key. It is not unique: duplicates are a
	// data quality finding.
	SessionID         string     `json:"session_id"`
	ProjectName       *string    `json:"project_name,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	DurationSeconds   *float64   `json:"duration_seconds,omitempty"`
	TotalCostUSD      float64    `json:"total_cost_usd"`
	TotalInputTokens  int64      `json:"total_input_tokens"`
	TotalOutputTokens int64      `json:"total_output_tokens"`
	ModelName         *string    `json:"model_name,omitempty"`
	ToolsUsed         []string   `json:"tools_used"`
	CacheHitCount     int64      `json:"cache_hit_count"`
	CacheMissCount    int64      `json:"cache_miss_count"`
	CreatedAt         time.Time  `json:"created_at"`
}

// SessionMetrics is a derived per-session row keyed by the parent
// session's internal ID.
type SessionMetrics struct {
	ID           int64  `json:"id"`
	SessionRef   string `json:"session_ref"`
	DateBucket   string `json:"date_bucket"`
	MessageCount int64  `json:"message_count"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// RawMessage is one entry of a session's message log.
type RawMessage struct {
	ID         int64     `json:"id"`
	SessionRef string    `json:"session_ref"`
	Role       string    `json:"role"`
	Content    string    `json:"content,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp column. Values written by other tools in
// RFC 3339 with fractional seconds or offsets are accepted as well.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
