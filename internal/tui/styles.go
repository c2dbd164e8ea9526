// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#25A065"))

	inTuneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	closeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8C547"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E84855"))
)

// Cents limits for the needle colours.
const (
	inTuneCents = 5
	closeCents  = 15
)

func centsStyle(cents float64) lipgloss.Style {
	switch c := abs(cents); {
	case c <= inTuneCents:
		return inTuneStyle
	case c <= closeCents:
		return closeStyle
	default:
		return offStyle
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
