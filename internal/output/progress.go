package output

import (
	"fmt"
	"strings"
)

// ScoreBar renders a visual progress bar for a 0-100 score.
// Example: "████████░░ 80/100"
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int((score / 100.0) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	var style func(string) string
	switch {
	case score >= 85:
		style = func(s string) string { return StyleSuccess.Render(s) }
	case score >= 60:
		style = func(s string) string { return StyleWarning.Render(s) }
	default:
		style = func(s string) string { return StyleError.Render(s) }
	}

	return fmt.Sprintf("%s %s", style(bar), StyleMuted.Render(fmt.Sprintf("%.0f/100", score)))
}

// GradeBadge renders a letter grade colored by how healthy it is. Without
// color the grade is bracketed so it still stands out.
func GradeBadge(grade string) string {
	if IsNoColor() {
		return "[" + grade + "]"
	}
	switch grade {
	case "A", "B":
		return StyleSuccess.Bold(true).Render(grade)
	case "C", "D":
		return StyleWarning.Bold(true).Render(grade)
	default:
		return StyleError.Bold(true).Render(grade)
	}
}

// Bar renders value relative to max as a horizontal bar of at most width
// cells. Non-zero values always get at least one cell.
func Bar(value, max float64, width int) string {
	if max <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	filled := int(value / max * float64(width))
	if filled < 1 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return StyleHeader.Render(strings.Repeat("█", filled))
}

// heatShades goes from empty to densest.
var heatShades = []string{"·", "░", "▒", "▓", "█"}

// HeatCell renders one heatmap cell shaded by value relative to max.
func HeatCell(value, max int) string {
	if value <= 0 || max <= 0 {
		return StyleMuted.Render(heatShades[0])
	}
	idx := 1 + (value-1)*(len(heatShades)-1)/max
	if idx >= len(heatShades) {
		idx = len(heatShades) - 1
	}
	return StyleHeader.Render(heatShades[idx])
}

// Section renders a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}

// KeyValue renders one labelled metric line.
func KeyValue(label, value string) string {
	return fmt.Sprintf(" %s %s", StyleLabel.Render(label), StyleValue.Render(value))
}
