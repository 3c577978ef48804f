package output

import "fmt"

// FormatTokenCount formats large token counts with K/M suffixes.
func FormatTokenCount(tokens int64) string {
	switch {
	case tokens >= 1_000_000 || tokens <= -1_000_000:
		return fmt.Sprintf("%.1fM", float64(tokens)/1_000_000)
	case tokens >= 1_000 || tokens <= -1_000:
		return fmt.Sprintf("%.1fK", float64(tokens)/1_000)
	default:
		return fmt.Sprintf("%d", tokens)
	}
}

// FormatCost formats a USD amount.
func FormatCost(usd float64) string {
	if usd != 0 && usd < 0.01 && usd > -0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

// FormatDuration converts seconds to a human-readable duration string.
func FormatDuration(seconds float64) string {
	if seconds >= 3600 {
		return fmt.Sprintf("%.1fh", seconds/3600)
	}
	if seconds >= 60 {
		return fmt.Sprintf("%.0fm", seconds/60)
	}
	return fmt.Sprintf("%.0fs", seconds)
}

// FormatPercent formats an already-scaled percentage.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// TruncateID shortens a UUID for display.
func TruncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
