package ui

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// DisplayConfigContextKey is the key used to store DisplayConfig in context
type DisplayConfigContextKey struct{}

// GetDisplayConfigContextKey returns the key used to store DisplayConfig in context
func GetDisplayConfigContextKey() DisplayConfigContextKey {
	return DisplayConfigContextKey{}
}

// DisplayConfig decides between the live upload view and plain line output
type DisplayConfig struct {
	DisableAnimation bool
	IsInteractive    bool
}

// SimpleOutput reports whether progress is printed as plain lines
func (d DisplayConfig) SimpleOutput() bool {
	return !d.IsInteractive || d.DisableAnimation
}

// terminalState is what NewDisplayConfig learns about the process's outputs
type terminalState struct {
	stdoutIsTTY        bool
	stderrSameAsStdout bool
}

func detectTerminal() terminalState {
	state := terminalState{stdoutIsTTY: isatty.IsTerminal(os.Stdout.Fd())}
	if stdout, err := os.Stdout.Stat(); err == nil {
		if stderr, err := os.Stderr.Stat(); err == nil {
			state.stderrSameAsStdout = os.SameFile(stdout, stderr)
		}
	}
	return state
}

// resolveDisplay applies the rules: the live view needs a terminal on stdout,
// no --no-color/--no-ansi, and verbose logs that do not land on the same terminal.
func resolveDisplay(noColor, noAnsi, verbose bool, term terminalState) DisplayConfig {
	disableAnimation := noColor || noAnsi
	verboseForcesSimple := verbose && term.stderrSameAsStdout

	return DisplayConfig{
		DisableAnimation: disableAnimation,
		IsInteractive:    term.stdoutIsTTY && !disableAnimation && !verboseForcesSimple,
	}
}

// NewDisplayConfig reads the persistent display flags and inspects the terminal
func NewDisplayConfig(cmd *cobra.Command, verbose bool) (DisplayConfig, error) {
	noColor, _ := cmd.Flags().GetBool("no-color")
	noAnsi, _ := cmd.Flags().GetBool("no-ansi")

	term := detectTerminal()
	opts := resolveDisplay(noColor, noAnsi, verbose, term)

	slog.Debug("Display options determined",
		"command", cmd.Name(),
		"no-color-flag", noColor,
		"no-ansi-flag", noAnsi,
		"verbose-flag", verbose,
		"stdout-is-tty", term.stdoutIsTTY,
		"stderr-same-as-stdout", term.stderrSameAsStdout,
		"is-interactive", opts.IsInteractive,
		"simple-output", opts.SimpleOutput(),
	)

	return opts, nil
}

// GetDisplayConfigFromContext retrieves DisplayConfig from the command context
func GetDisplayConfigFromContext(cmd *cobra.Command) (DisplayConfig, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return DisplayConfig{}, fmt.Errorf("command context is nil")
	}

	opts, ok := ctx.Value(GetDisplayConfigContextKey()).(DisplayConfig)
	if !ok {
		return DisplayConfig{}, fmt.Errorf("display options not found in context")
	}

	return opts, nil
}
