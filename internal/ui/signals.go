package ui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SignalCancelMsg is sent to the program when SIGINT or SIGTERM arrives
type SignalCancelMsg struct {
	Signal os.Signal
}

// defaultShutdownTimeout is how long the program gets to quit after the first signal
const defaultShutdownTimeout = 2 * time.Second

// SetupSignalHandling replaces Bubbletea's signal handler. The first signal
// cancels in-flight work and tells the program to quit; a second signal, or a
// program that does not quit in time, exits the process.
// Call before p.Run and call the returned stop function once it returns.
func SetupSignalHandling(p *tea.Program, shutdownTimeout time.Duration, cancel context.CancelFunc) (stop func()) {
	if shutdownTimeout == 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	tea.WithoutSignalHandler()(p)

	sigChan := make(chan os.Signal, 1)
	doneCh := make(chan struct{})
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		var sig os.Signal
		select {
		case sig = <-sigChan:
		case <-doneCh:
			return
		}

		if cancel != nil {
			cancel()
		}
		p.Send(SignalCancelMsg{Signal: sig})

		timer := time.NewTimer(shutdownTimeout)
		defer timer.Stop()

		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\nForce quitting...\n")
			os.Exit(ExitCancelled)
		case <-timer.C:
			fmt.Fprintf(os.Stderr, "\nTimeout trying to clean up, force quitting...\n")
			os.Exit(ExitCancelled)
		case <-doneCh:
		}
	}()

	return func() { close(doneCh) }
}
