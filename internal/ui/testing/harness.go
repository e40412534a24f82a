// Package testing drives Bubbletea models step by step in unit tests.
//
// A harness sends each step's message to Update, runs the returned command
// chain synchronously and then checks View and the model. Commands that would
// normally run in the background can be caught with Expect and Finally:
//
//	uitesting.NewTestHarness(t, model).
//		Step(uitesting.TestStep[*UploadView]{Name: "start", Msg: startMsg{}}).
//		Expect(uitesting.TestStep[*UploadView]{Name: "sent", ExpectedMsgType: fileSentMsg{}}).
//		Finally(uitesting.TestStep[*UploadView]{Name: "done"}).
//		Run(t)
//
// tea.BatchMsg is handed to Update as-is and never expanded, so batched
// commands (tickers, spinners, background work) do not run inside tests.
package testing

import (
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sebdah/goldie/v2"
)

// maxCommandDepth bounds command chains, mostly self-rescheduling ticks
const maxCommandDepth = 10

// TestStep is one message plus the assertions to run after it was handled.
// T is the concrete model type, e.g. *UploadView.
type TestStep[T tea.Model] struct {
	Name string

	// Msg is sent to Update. Nil only renders. Leave nil for Expect/Finally steps.
	Msg tea.Msg

	// ExpectedMsgType matches an intercepted message by exact type.
	// Unset matches any message that is not user input or a batch.
	ExpectedMsgType tea.Msg

	// MessageAssert inspects an intercepted message before Update sees it
	MessageAssert func(t *testing.T, msg tea.Msg)

	// ViewGolden compares View() against testdata/<ViewGolden>.golden (regenerate with -update)
	ViewGolden string

	ViewAssert        func(t *testing.T, view string)
	ModelAssert       func(t *testing.T, m T)
	SkipViewAssertion bool
}

// TestHarness runs a sequence of steps against a model
type TestHarness[T tea.Model] struct {
	model    T
	steps    []TestStep[T]
	expected []TestStep[T]
	final    *TestStep[T]
	golden   *goldie.Goldie

	nextExpected int
	stopped      bool
}

// NewTestHarness wraps model. Colors are disabled so views compare the same everywhere.
func NewTestHarness[T tea.Model](t *testing.T, model T) *TestHarness[T] {
	t.Helper()

	lipgloss.SetColorProfile(termenv.Ascii)

	return &TestHarness[T]{
		model: model,
		golden: goldie.New(t,
			goldie.WithFixtureDir("testdata"),
			goldie.WithNameSuffix(".golden"),
		),
	}
}

// Step queues a message to send
func (h *TestHarness[T]) Step(step TestStep[T]) *TestHarness[T] {
	h.steps = append(h.steps, step)
	return h
}

// Expect catches the next message produced by a command, in order.
// A message of any other type fails the test.
func (h *TestHarness[T]) Expect(step TestStep[T]) *TestHarness[T] {
	h.expected = append(h.expected, step)
	return h
}

// Finally catches one more message and stops running commands after it
func (h *TestHarness[T]) Finally(step TestStep[T]) *TestHarness[T] {
	h.final = &step
	return h
}

// Run calls Init, then plays every step
func (h *TestHarness[T]) Run(t *testing.T) {
	t.Helper()

	h.nextExpected = 0
	h.stopped = false

	h.runCommands(t, h.model.Init(), 0)

	for _, step := range h.steps {
		if h.stopped {
			break
		}

		t.Run(step.Name, func(t *testing.T) {
			if step.Msg != nil {
				cmd := h.update(t, step.Msg)
				h.runCommands(t, cmd, 0)
			}
			h.check(t, step)
		})
	}
}

func (h *TestHarness[T]) update(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()

	updated, cmd := h.model.Update(msg)
	model, ok := updated.(T)
	if !ok {
		t.Fatalf("model %T is not %T", updated, h.model)
	}
	h.model = model
	return cmd
}

// runCommands executes cmd and feeds the result back, the way the Bubbletea loop would
func (h *TestHarness[T]) runCommands(t *testing.T, cmd tea.Cmd, depth int) {
	t.Helper()

	if cmd == nil || h.stopped {
		return
	}
	if depth >= maxCommandDepth {
		t.Log("max command depth exceeded")
		return
	}

	msg := cmd()
	if msg == nil {
		return
	}

	if h.intercept(t, msg) {
		return
	}

	next := h.update(t, msg)
	h.runCommands(t, next, depth+1)
}

// intercept hands msg to the next Expect or Finally step. It reports whether msg was consumed.
func (h *TestHarness[T]) intercept(t *testing.T, msg tea.Msg) bool {
	t.Helper()

	if h.nextExpected < len(h.expected) {
		step := h.expected[h.nextExpected]
		if !matches(msg, step.ExpectedMsgType) {
			t.Fatalf("unexpected message while waiting for step %q (want %s): %T %+v",
				step.Name, typeName(step.ExpectedMsgType), msg, msg)
			return true
		}
		h.nextExpected++
		h.consume(t, msg, step)
		return true
	}

	if h.final == nil {
		return false
	}

	if matches(msg, h.final.ExpectedMsgType) {
		h.consume(t, msg, *h.final)
		h.stopped = true
		return true
	}

	if !isFrameworkMessage(msg) {
		t.Fatalf("unexpected message before final step %q (want %s): %T %+v",
			h.final.Name, typeName(h.final.ExpectedMsgType), msg, msg)
	}
	return false
}

// consume applies an intercepted message without running the command it returns
func (h *TestHarness[T]) consume(t *testing.T, msg tea.Msg, step TestStep[T]) {
	t.Helper()

	if step.MessageAssert != nil {
		step.MessageAssert(t, msg)
	}
	_ = h.update(t, msg)

	t.Run(step.Name, func(t *testing.T) {
		h.check(t, step)
	})
}

func (h *TestHarness[T]) check(t *testing.T, step TestStep[T]) {
	t.Helper()

	if !step.SkipViewAssertion {
		view := normalizeView(h.model.View())
		if step.ViewGolden != "" {
			h.golden.Assert(t, step.ViewGolden, []byte(view))
		}
		if step.ViewAssert != nil {
			step.ViewAssert(t, view)
		}
	}

	if step.ModelAssert != nil {
		step.ModelAssert(t, h.model)
	}
}

func isFrameworkMessage(msg tea.Msg) bool {
	switch msg.(type) {
	case tea.BatchMsg, tea.KeyMsg, tea.MouseMsg, tea.WindowSizeMsg:
		return true
	default:
		return false
	}
}

func matches(msg, expected tea.Msg) bool {
	if expected != nil {
		return reflect.TypeOf(msg) == reflect.TypeOf(expected)
	}
	return !isFrameworkMessage(msg)
}

func typeName(msg tea.Msg) string {
	if msg == nil {
		return "any command result"
	}
	return reflect.TypeOf(msg).String()
}

func normalizeView(view string) string {
	view = strings.ReplaceAll(view, "\r\n", "\n")
	return strings.TrimSpace(view)
}

// AssertContains fails when view lacks substring, printing the whole view
func AssertContains(t *testing.T, view, substring string) {
	t.Helper()
	if !strings.Contains(view, substring) {
		t.Errorf("view does not contain %q\nview:\n%s", substring, view)
	}
}

// AssertNotContains fails when view contains substring
func AssertNotContains(t *testing.T, view, substring string) {
	t.Helper()
	if strings.Contains(view, substring) {
		t.Errorf("view unexpectedly contains %q\nview:\n%s", substring, view)
	}
}

// AssertGolden compares a view rendered outside a harness against
// testdata/<name>.golden, normalized the same way harness steps are
func AssertGolden(t *testing.T, name, view string) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(normalizeView(view)))
}
