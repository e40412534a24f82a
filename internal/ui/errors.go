package ui

import "fmt"

// ErrorType defines the category of error for proper handling
type ErrorType int

const (
	ErrorTypeUserCancelled ErrorType = iota // Ctrl+C, 'q' - silent exit
	ErrorTypeValidation                     // Bad flags - show error
	ErrorTypeAPI                            // Telegram/network failures - show error
	ErrorTypeFileSystem                     // Scanning, reading videos, writing reports
	ErrorTypeConfiguration                  // Missing or invalid environment
	ErrorTypeInternal                       // Unexpected
)

// Exit codes
const (
	ExitFailure   = 1
	ExitCancelled = 130 // 128 + SIGINT, as shells report it
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUserCancelled: "cancelled",
	ErrorTypeValidation:    "validation",
	ErrorTypeAPI:           "api",
	ErrorTypeFileSystem:    "filesystem",
	ErrorTypeConfiguration: "configuration",
	ErrorTypeInternal:      "internal",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// UIError carries an error from the Bubbletea model back to Cobra and main,
// together with how it should be presented.
type UIError struct {
	Err  error
	Type ErrorType

	// SilentExit means the message was already rendered (or should not be)
	SilentExit bool
}

func (e *UIError) Error() string {
	return e.Err.Error()
}

func (e *UIError) Unwrap() error {
	return e.Err
}

// ExitCode is the process exit status for this error
func (e *UIError) ExitCode() int {
	if e.Type == ErrorTypeUserCancelled {
		return ExitCancelled
	}
	return ExitFailure
}

func newUIError(t ErrorType, err error) *UIError {
	return &UIError{Err: err, Type: t}
}

func NewUserCancelledError() *UIError {
	e := newUIError(ErrorTypeUserCancelled, fmt.Errorf("cancelled by user"))
	e.SilentExit = true
	return e
}

func NewValidationError(err error) *UIError {
	return newUIError(ErrorTypeValidation, err)
}

func NewAPIError(err error) *UIError {
	return newUIError(ErrorTypeAPI, err)
}

func NewFileSystemError(err error) *UIError {
	return newUIError(ErrorTypeFileSystem, err)
}

func NewConfigurationError(err error) *UIError {
	return newUIError(ErrorTypeConfiguration, err)
}

func NewInternalError(err error) *UIError {
	return newUIError(ErrorTypeInternal, err)
}
