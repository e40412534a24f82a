package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"

	"github.com/fastupload/tgupbench/internal/telegram"
)

// defaultPromptConnections is offered in the interactive walkthrough
const defaultPromptConnections = 16

func isTerminalInput() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// promptOptions asks for the benchmark options one by one
func promptOptions(out io.Writer, opts benchOptions) (benchOptions, error) {
	fmt.Fprintln(out, "Interactive mode: press enter to accept the defaults.")
	fmt.Fprintln(out)

	var limit string
	if err := survey.AskOne(&survey.Input{
		Message: "Upload at most how many files?",
		Help:    "Leave empty to upload every video found",
	}, &limit, survey.WithValidator(intAtLeast(1, true))); err != nil {
		return opts, err
	}
	opts.limit, _ = parseOptionalInt(limit)

	if err := survey.AskOne(&survey.Confirm{
		Message: "Scan subdirectories too?",
		Default: false,
	}, &opts.recursive); err != nil {
		return opts, err
	}

	if err := survey.AskOne(&survey.Confirm{
		Message: "Ignore proxy settings (--no-proxy)?",
		Default: true,
	}, &opts.noProxy); err != nil {
		return opts, err
	}

	connections := strconv.Itoa(defaultPromptConnections)
	if err := survey.AskOne(&survey.Input{
		Message: fmt.Sprintf("Connections per file (8-%d recommended)", telegram.MaxConnections),
		Default: connections,
	}, &connections, survey.WithValidator(connectionsValidator)); err != nil {
		return opts, err
	}
	opts.connections, _ = strconv.Atoi(strings.TrimSpace(connections))

	fmt.Fprintln(out)
	return opts, nil
}

// intAtLeast validates an integer answer of at least minimum. Empty answers
// pass when allowEmpty is set.
func intAtLeast(minimum int, allowEmpty bool) survey.Validator {
	return func(ans interface{}) error {
		s, _ := ans.(string)
		if strings.TrimSpace(s) == "" {
			if allowEmpty {
				return nil
			}
			return fmt.Errorf("a value is required")
		}
		n, err := parseOptionalInt(s)
		if err != nil {
			return fmt.Errorf("please enter a whole number")
		}
		if n < minimum {
			return fmt.Errorf("please enter a number >= %d", minimum)
		}
		return nil
	}
}

func connectionsValidator(ans interface{}) error {
	if err := intAtLeast(1, false)(ans); err != nil {
		return err
	}
	s, _ := ans.(string)
	n, _ := parseOptionalInt(s)
	if n > telegram.MaxConnections {
		return fmt.Errorf("please enter a number <= %d", telegram.MaxConnections)
	}
	return nil
}

func parseOptionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
