package ui

import "github.com/charmbracelet/lipgloss"

// AccentColor is the Telegram brand blue used for borders, titles and the progress bar
const AccentColor = lipgloss.Color("#229ED9")

var (
	GreenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	RedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	YellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	BoldStyle   = lipgloss.NewStyle().Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	SpinnerStyle = lipgloss.NewStyle().Foreground(AccentColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	TitleStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
)
