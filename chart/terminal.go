package chart

import (
	"fmt"
	"math"
	"strings"

	"charm.land/lipgloss/v2"
)

var (
	barColor   = lipgloss.Color(Color)
	trackColor = lipgloss.Color("#334155")
	dimColor   = lipgloss.Color("#94A3B8")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(barColor)
	labelStyle = lipgloss.NewStyle()
	valueStyle = lipgloss.NewStyle().Foreground(dimColor)
)

// Terminal renders the bars horizontally; width is the total line width.
func (c Chart) Terminal(width int) string {
	labelWidth := 0
	for _, bar := range c.Bars {
		labelWidth = max(labelWidth, lipgloss.Width(bar.Outcome))
	}
	barWidth := width - labelWidth - 8
	if barWidth < 10 {
		barWidth = 10
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Title))
	b.WriteString("\n")
	for _, bar := range c.Bars {
		filled := int(math.Round(float64(barWidth) * c.fraction(bar.Probability)))
		b.WriteString(labelStyle.Width(labelWidth).Render(bar.Outcome))
		b.WriteString("  ")
		b.WriteString(lipgloss.NewStyle().Foreground(barColor).Render(strings.Repeat("█", filled)))
		b.WriteString(lipgloss.NewStyle().Foreground(trackColor).Render(strings.Repeat("░", barWidth-filled)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("  %.2f", bar.Probability)))
		b.WriteString("\n")
	}
	return b.String()
}
