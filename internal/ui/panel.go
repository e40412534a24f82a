package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPanel draws content inside a rounded border with title set into the top edge
func RenderPanel(title, content string) string {
	// lipgloss borders cannot carry a title, so the box is drawn by hand
	padded := lipgloss.NewStyle().Padding(1, 2, 0).Render(content)
	lines := strings.Split(padded, "\n")

	width := 0
	for _, line := range lines {
		width = max(width, lipgloss.Width(line))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}

	border := lipgloss.NewStyle().Foreground(AccentColor)
	styledTitle := " " + TitleStyle.Render(title) + " "

	// "╭─" before the title plus the closing "╮"
	fill := max(width+2-lipgloss.Width(styledTitle)-3, 1)

	var b strings.Builder
	b.WriteString(border.Render("╭─") + styledTitle + border.Render(strings.Repeat("─", fill)+"╮") + "\n")
	for _, line := range lines {
		b.WriteString(border.Render("│") + line + border.Render("│") + "\n")
	}
	b.WriteString(border.Render("╰"+strings.Repeat("─", width)+"╯") + "\n")

	return b.String()
}

// TableSection is a titled group of label/value rows
type TableSection struct {
	Header string
	Rows   []TableRow
}

type TableRow struct {
	Label string
	Value string
}

// RenderDetailTable renders label/value rows, labels padded to the longest one
func RenderDetailTable(sections []TableSection) string {
	labelWidth := 0
	for _, section := range sections {
		for _, row := range section.Rows {
			labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		}
	}

	labelStyle := lipgloss.NewStyle().Bold(true).Width(labelWidth + 3)
	headerStyle := lipgloss.NewStyle().Bold(true).Underline(true)

	var b strings.Builder
	for i, section := range sections {
		if section.Header != "" {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(headerStyle.Render(section.Header) + "\n\n")
		}

		for _, row := range section.Rows {
			b.WriteString(labelStyle.Render(row.Label) + row.Value + "\n")
		}
	}

	return b.String()
}
