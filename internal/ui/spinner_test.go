package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	uitesting "github.com/fastupload/tgupbench/internal/ui/testing"
)

func assertMiniDotFrame(t *testing.T, view string) {
	t.Helper()
	assert.Contains(t, spinner.MiniDot.Frames, view, "view should be a single spinner frame")
}

func TestSpinnerModel(t *testing.T) {
	harness := uitesting.NewTestHarness(t, NewSpinner())
	harness.
		Step(uitesting.TestStep[*SpinnerModel]{
			Name:       "initial_view",
			ViewAssert: assertMiniDotFrame,
		}).
		Step(uitesting.TestStep[*SpinnerModel]{
			Name:       "tick",
			Msg:        spinner.TickMsg{},
			ViewAssert: assertMiniDotFrame,
		}).
		Run(t)
}

func TestSpinnerModel_Update(t *testing.T) {
	model := NewSpinner()
	before := model.View()

	updated, cmd := model.Update(spinner.TickMsg{})

	assert.NotNil(t, cmd, "Update should schedule the next tick")
	assert.NotEqual(t, before, updated.View(), "a tick advances the frame")
}

func TestSimpleSpinner_NotATerminal(t *testing.T) {
	var buf bytes.Buffer
	s := newSimpleSpinner(&buf, "Scanning...", false)
	s.Start()
	s.Stop()
	s.Stop()

	assert.Empty(t, buf.String())
}

func TestSimpleSpinner_Animates(t *testing.T) {
	var buf bytes.Buffer
	s := newSimpleSpinner(&buf, "Scanning...", true)
	s.Start()
	s.Stop()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\r⠋ Scanning..."), "first frame is drawn immediately: %q", out)
	assert.True(t, strings.HasSuffix(out, "\r\033[K"), "line is cleared on stop")
}

func TestColorizeSpeed(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	assert.Equal(t, "12.50 MB/s", ColorizeSpeed(12.5, 10))
	assert.Equal(t, "3.00 MB/s", ColorizeSpeed(3, 10))
	assert.Equal(t, "0.00 MB/s", ColorizeSpeed(0, 0))
}

func TestRenderDetailTable_AlignsLabels(t *testing.T) {
	out := RenderDetailTable([]TableSection{{Rows: []TableRow{
		{Label: "Target", Value: "me"},
		{Label: "Connections", Value: "8"},
	}}})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[0], "me"), strings.Index(lines[1], "8"))
}

func TestRenderPanel(t *testing.T) {
	out := RenderPanel("Upload benchmark", "hello")
	assert.Contains(t, out, "╭─ Upload benchmark ")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "╰")
}

func TestSpinnerModel_IgnoresOtherMessages(t *testing.T) {
	model := NewSpinner()
	before := model.View()

	updated, cmd := model.Update(tea.WindowSizeMsg{Width: 80})

	assert.Nil(t, cmd)
	assert.Equal(t, before, updated.View())
}
