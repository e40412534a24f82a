package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// SimpleSpinner animates a status line outside of Bubbletea, for the steps
// that run before the upload view starts (login, target lookup, scanning).
// It draws on stderr so piped stdout stays clean, and only when stderr is a terminal.
type SimpleSpinner struct {
	out     io.Writer
	message string
	frames  []string
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewSimpleSpinner(message string) *SimpleSpinner {
	return newSimpleSpinner(os.Stderr, message, isatty.IsTerminal(os.Stderr.Fd()))
}

func newSimpleSpinner(out io.Writer, message string, animate bool) *SimpleSpinner {
	s := &SimpleSpinner{
		out:     out,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if !animate {
		s.out = nil
	}
	return s
}

// Start begins the animation
func (s *SimpleSpinner) Start() {
	if s.out == nil {
		close(s.done)
		return
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s", s.frames[i%len(s.frames)], s.message)
			select {
			case <-s.stop:
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop clears the line and waits for the animation to end. Safe to call twice.
func (s *SimpleSpinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
