package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // every subscriber validated without failure
	ExitFailure      = 1 // failed or error results, rule file issues, failed scenarios
	ExitCommandError = 2 // bad flags, unreadable input, database errors
)

// Error codes carried in JSON error responses.
const (
	ErrCodeConfig     = "CONFIG_INVALID"
	ErrCodeInput      = "INPUT_INVALID"
	ErrCodeStore      = "STORE_ERROR"
	ErrCodeValidation = "VALIDATION_FAILED"
)

// ExitError carries the process exit code for a command failure.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Nil is success; errors
// that are not an ExitError are command errors.
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

// OutputFormatter writes command output as a JSON envelope or as text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON reports whether the envelope format is selected.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data. In text mode text renders it; a nil text prints
// data with fmt.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	return f.Result(true, data, text)
}

// Result writes data with status "ok" or "error". Failed validations still
// carry their data, so the envelope status mirrors the exit code.
func (f *OutputFormatter) Result(ok bool, data any, text func(w io.Writer)) error {
	if f.JSON() {
		status := "ok"
		if !ok {
			status = "error"
		}
		return f.encode(CLIResponse{Status: status, Data: data})
	}
	if text != nil {
		text(f.Writer)
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes a command error. Details are printed in text mode only
// when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.JSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// GetErrWriter returns the writer for diagnostics.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// fail writes a command error and returns the matching ExitError.
func (f *OutputFormatter) fail(exitCode int, code, message string, details any, err error) error {
	if werr := f.Error(code, message, details); werr != nil {
		return werr
	}
	if err != nil {
		return WrapExitError(exitCode, message, err)
	}
	return NewExitError(exitCode, message)
}
