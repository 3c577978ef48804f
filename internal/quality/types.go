// Package quality audits the session store for duplicates, orphans,
// missing values and integrity violations, and performs the transactional
// cleanups that repair the first two.
package quality

import "time"

// Recommendation severities.
const (
	TypeError   = "error"
	TypeWarning = "warning"
	TypeInfo    = "info"
)

// ActionDeduplicate names the cleanup that resolves duplicate sessions.
const ActionDeduplicate = "deduplicate"

// Counts are the headline audit counts.
type Counts struct {
	TotalSessions    int64 `json:"totalSessions"`
	CompleteSessions int64 `json:"completeSessions"`
	// DuplicateSessions is the number of session_id groups with more than
	// one row.
	DuplicateSessions int64 `json:"duplicateSessions"`
	// RedundantRows is the number of rows a deduplication would delete.
	RedundantRows          int64 `json:"redundantRows"`
	OrphanedMetrics        int64 `json:"orphanedMetrics"`
	MetricsWithoutMessages int64 `json:"metricsWithoutMessages"`
}

// DuplicateGroup describes one session_id that occurs more than once.
type DuplicateGroup struct {
	SessionID string    `json:"sessionId"`
	Count     int64     `json:"count"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}

// MissingData counts absent or empty values.
type MissingData struct {
	MissingEndTime     int64 `json:"missingEndTime"`
	MissingDuration    int64 `json:"missingDuration"`
	MissingTokens      int64 `json:"missingTokens"`
	MissingCost        int64 `json:"missingCost"`
	ZeroMessageMetrics int64 `json:"zeroMessageMetrics"`
}

// Total sums every missing-data counter.
func (m MissingData) Total() int64 {
	return m.MissingEndTime + m.MissingDuration + m.MissingTokens + m.MissingCost + m.ZeroMessageMetrics
}

// DataIntegrity counts values that violate session invariants.
type DataIntegrity struct {
	NegativeTokens    int64 `json:"negativeTokens"`
	NegativeCosts     int64 `json:"negativeCosts"`
	NegativeDurations int64 `json:"negativeDurations"`
	FutureTimestamps  int64 `json:"futureTimestamps"`
	InvalidTimeRanges int64 `json:"invalidTimeRanges"`
}

// Total sums every integrity counter.
func (d DataIntegrity) Total() int64 {
	return d.NegativeTokens + d.NegativeCosts + d.NegativeDurations + d.FutureTimestamps + d.InvalidTimeRanges
}

// Recommendation is an actionable audit finding.
type Recommendation struct {
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	AffectedRecords int64   `json:"affectedRecords"`
	Action          *string `json:"action,omitempty"`
}

// Report is the result of a full audit.
type Report struct {
	Counts        Counts           `json:"counts"`
	Duplicates    []DuplicateGroup `json:"duplicates"`
	MissingData   MissingData      `json:"missingData"`
	DataIntegrity DataIntegrity    `json:"dataIntegrity"`
	// TotalIssues sums all missing-data and integrity counters. One session
	// can contribute to several of them.
	TotalIssues       int64            `json:"totalIssues"`
	CompletenessScore int              `json:"completenessScore"`
	Grade             string           `json:"grade"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// Result is the outcome of a cleanup operation.
type Result struct {
	DeletedRecords int64  `json:"deletedRecords"`
	Message        string `json:"message"`
}
