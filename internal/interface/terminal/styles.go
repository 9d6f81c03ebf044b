package terminal

import "github.com/charmbracelet/lipgloss"

var (
	primary  = lipgloss.Color("#7D56F4")
	success  = lipgloss.Color("#00C853")
	errorCol = lipgloss.Color("#FF1744")
	text     = lipgloss.Color("#C0CAF5")
	muted    = lipgloss.Color("#565F89")

	titleStyle = lipgloss.NewStyle().
			Foreground(primary).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted)

	keyStyle = lipgloss.NewStyle().
			Foreground(muted).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(text)

	mutedStyle = lipgloss.NewStyle().
			Foreground(muted)

	labelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	promptStyle = lipgloss.NewStyle().
			Foreground(primary).
			Bold(true)
)
