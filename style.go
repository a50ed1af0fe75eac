package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

var keywordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF87D7"))

// keyword colorizes a word in help text when the terminal supports it.
func keyword(s string) string {
	if termenv.EnvColorProfile() == termenv.Ascii {
		return s
	}
	return keywordStyle.Render(s)
}

// paragraph wraps and indents help text for the terminal.
func paragraph(s string) string {
	return strings.TrimSpace(indent.String(wordwrap.String(s, 76), 2))
}
