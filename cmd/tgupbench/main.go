package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fastupload/tgupbench/internal/commands"
	"github.com/fastupload/tgupbench/internal/ui"
	tgupbench_bugsnag "github.com/fastupload/tgupbench/pkg/bugsnag"
)

func main() {
	// Error reporting is configured once the config is loaded; this only
	// reports panics after that point
	defer tgupbench_bugsnag.NotifyOnPanic(context.Background())

	rootCmd := commands.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err, func() { _ = rootCmd.Usage() }))
	}
}

// exitCode prints err the way its category asks for and returns the process exit code
func exitCode(err error, usage func()) int {
	var uiErr *ui.UIError
	if errors.As(err, &uiErr) {
		if !uiErr.SilentExit {
			fmt.Fprintf(os.Stderr, "Error: %s\n", uiErr.Error())
		}
		return uiErr.ExitCode()
	}

	errMsg := err.Error()
	if strings.HasPrefix(errMsg, "unknown command") {
		// Unknown command - usage is suppressed for commands, so show it here
		usage()
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintln(os.Stderr, err)
	return ui.ExitFailure
}
