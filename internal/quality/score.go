package quality

import "github.com/shopspring/decimal"

// CompletenessScore maps issue and session counts to 0..100. An empty
// dataset scores 100.
func CompletenessScore(totalIssues, totalSessions int64) int {
	if totalSessions == 0 {
		return 100
	}
	ratio := decimal.NewFromInt(totalIssues).Div(decimal.NewFromInt(totalSessions))
	score := decimal.NewFromInt(1).Sub(ratio).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if score < 0 {
		return 0
	}
	return int(score)
}

// Grade maps a completeness score to a letter grade.
func Grade(score int) string {
	switch {
	case score >= 95:
		return "A"
	case score >= 85:
		return "B"
	case score >= 75:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
