package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/gavel/internal/engine"
	"github.com/roach88/gavel/internal/money"
	"github.com/roach88/gavel/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected operation, failed scenarios, replay mismatch
	ExitCommandError = 2 // Command error (bad flags, unreadable config, database failure)
)

// Error codes reported for failures that are not engine rejections.
const (
	CodeConflict     = "E_CONFLICT"
	CodeJournal      = "E_JOURNAL"
	CodeUnreconciled = "E_UNRECONCILED"
	CodeTransfer     = "E_TRANSFER"
	CodeCommand      = "E_COMMAND"
	CodeReplay       = "E_REPLAY"
	CodeTestFailed   = "E_TEST_FAILED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written through an
	// OutputFormatter, so main must not print it again.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitCommandError if the error is not an
// ExitError: those come from cobra's flag and argument validation.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// WasReported reports whether err was already written to the user.
func WasReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // engine code or E_* code
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. Text output
// prints data with fmt, so result types implement fmt.Stringer.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err through the formatter and returns the ExitError the
// command should return.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	var details any
	var e *engine.Error
	if errors.As(err, &e) {
		details = map[string]string{"auction_id": e.AuctionID, "identity": e.Identity}
	}
	if code == CodeConflict {
		details = map[string]string{"hint": "another process wrote to the journal; retry the command"}
	}
	if werr := f.Error(code, fmt.Sprintf("%s: %v", message, err), details); werr != nil {
		return WrapExitError(ExitCommandError, "write output", werr)
	}
	exitErr := WrapExitError(exit, message, err)
	exitErr.Reported = true
	return exitErr
}

// classify maps err to a response code and an exit code. Engine rejections
// keep their own code and exit 1; infrastructure failures exit 2.
func classify(err error) (string, int) {
	if code := engine.CodeOf(err); code != "" {
		return string(code), ExitFailure
	}
	switch {
	case errors.Is(err, money.ErrInvalidAmount):
		return string(engine.CodeInvalidAmount), ExitFailure
	case errors.Is(err, store.ErrConflict):
		return CodeConflict, ExitCommandError
	case errors.Is(err, engine.ErrUnreconciled):
		return CodeUnreconciled, ExitCommandError
	case errors.Is(err, engine.ErrCorruptJournal), errors.Is(err, store.ErrTampered):
		return CodeJournal, ExitCommandError
	case errors.Is(err, errTransfer):
		return CodeTransfer, ExitFailure
	}
	return CodeCommand, ExitCommandError
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
