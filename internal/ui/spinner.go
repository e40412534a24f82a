package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// SpinnerModel marks an upload as alive while parts are in flight
type SpinnerModel struct {
	spinner spinner.Model
}

// NewSpinner returns a MiniDot spinner in the accent color
func NewSpinner() *SpinnerModel {
	return &SpinnerModel{spinner: spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(SpinnerStyle),
	)}
}

func (m *SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update only reacts to spinner ticks, anything else is ignored
func (m *SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok {
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(tick)
	return m, cmd
}

func (m *SpinnerModel) View() string {
	return m.spinner.View()
}
