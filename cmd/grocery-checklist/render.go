package main

import (
	"strings"

	"ai-grocery-checklist/internal/app"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.Color("#8BC34A")
	muted  = lipgloss.Color("#6b7280")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	categoryStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	itemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	checkedStyle  = itemStyle.Strikethrough(true).Foreground(muted)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted).Italic(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(accent)
)

// renderList formats a checklist for the terminal, one line per item.
func renderList(v app.View) string {
	if v.IsEmpty() {
		return mutedStyle.Render("The list is empty.") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Shopping List"))
	sb.WriteString("\n")
	for _, cat := range v.Categories {
		sb.WriteString("\n")
		sb.WriteString(categoryStyle.Render(cat.Label))
		sb.WriteString("\n")
		for _, item := range cat.Items {
			if v.Checked[item.ID] {
				sb.WriteString(checkedStyle.Render("[x] " + item.Text))
			} else {
				sb.WriteString(itemStyle.Render("[ ] " + item.Text))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
