package model

import "fmt"

// ExitCode defines the CLI exit codes. These codes let scripts and
// systemd units distinguish failure classes programmatically.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates a profile file could not be read,
	// parsed, or validated.
	ExitConfigError ExitCode = 2

	// ExitGPIOUnavailable indicates the GPIO character device could not
	// be opened or a pin could not be claimed.
	ExitGPIOUnavailable ExitCode = 3

	// ExitLaunchExhausted indicates every display backend candidate
	// failed to start the control UI.
	ExitLaunchExhausted ExitCode = 4
)

// CLIError is an error that carries an exit code. The CLI layer
// translates it into the process exit status.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the formatted error string, including the underlying
// error when present.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is / errors.As chains.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError without an underlying cause.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError wrapping an underlying cause.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
