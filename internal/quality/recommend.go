package quality

import "fmt"

// Rule inspects a report and returns zero or more recommendations.
type Rule func(r *Report) []Recommendation

// Recommender runs its rules in registration order. Every rule runs; one
// rule firing never suppresses another.
type Recommender struct {
	rules []Rule
}

// NewRecommender returns a Recommender with the built-in rules registered.
func NewRecommender() *Recommender {
	return &Recommender{
		rules: []Rule{
			DuplicateSessions,
			IncompleteSessions,
			InvalidValues,
			ExcellentQuality,
		},
	}
}

// Run collects the recommendations of every rule, in rule order.
func (rc *Recommender) Run(r *Report) []Recommendation {
	all := []Recommendation{}
	for _, rule := range rc.rules {
		all = append(all, rule(r)...)
	}
	return all
}

// DuplicateSessions flags session ids stored more than once.
func DuplicateSessions(r *Report) []Recommendation {
	if r.Counts.DuplicateSessions == 0 {
		return nil
	}
	action := ActionDeduplicate
	return []Recommendation{{
		Type:  TypeError,
		Title: "Duplicate Sessions Detected",
		Description: fmt.Sprintf(
			"%d session ids occur more than once (%d redundant rows). "+
				"Run the deduplicate cleanup to keep only the most recent row per session.",
			r.Counts.DuplicateSessions, r.Counts.RedundantRows,
		),
		AffectedRecords: r.Counts.RedundantRows,
		Action:          &action,
	}}
}

// IncompleteSessions flags sessions without an end time.
func IncompleteSessions(r *Report) []Recommendation {
	if r.MissingData.MissingEndTime == 0 {
		return nil
	}
	return []Recommendation{{
		Type:  TypeWarning,
		Title: "Incomplete Sessions",
		Description: fmt.Sprintf(
			"%d sessions have no end time. They may still be running or were interrupted before ingestion finished.",
			r.MissingData.MissingEndTime,
		),
		AffectedRecords: r.MissingData.MissingEndTime,
	}}
}

// InvalidValues flags negative token counts and costs.
func InvalidValues(r *Report) []Recommendation {
	affected := r.DataIntegrity.NegativeTokens + r.DataIntegrity.NegativeCosts
	if affected == 0 {
		return nil
	}
	return []Recommendation{{
		Type:  TypeError,
		Title: "Invalid Data Values",
		Description: fmt.Sprintf(
			"Found %d sessions with negative token counts and %d with negative costs. Re-ingest the affected sessions.",
			r.DataIntegrity.NegativeTokens, r.DataIntegrity.NegativeCosts,
		),
		AffectedRecords: affected,
	}}
}

// ExcellentQuality acknowledges a large, clean dataset.
func ExcellentQuality(r *Report) []Recommendation {
	if r.Counts.TotalSessions <= 1000 || r.Counts.DuplicateSessions != 0 || r.TotalIssues >= 10 {
		return nil
	}
	return []Recommendation{{
		Type:  TypeInfo,
		Title: "Excellent Data Quality",
		Description: fmt.Sprintf(
			"%d sessions with no duplicates and only %d issues.",
			r.Counts.TotalSessions, r.TotalIssues,
		),
		AffectedRecords: 0,
	}}
}
