package exit

import (
	"fmt"
	"io"
	"os"
)

// Exit codes of the jpq command.
const (
	CodeSuccess = 0
	CodeError   = 1
	CodeNoMatch = 2
)

// Result holds the output destination and exit code for program termination.
type Result struct {
	Output   io.Writer
	ExitCode int
	Message  string
}

// Print writes the result message to the configured output destination.
func (r *Result) Print() {
	fmt.Fprint(r.Output, r.Message)
}

// Success creates a successful exit result that outputs to stdout with exit code 0.
func Success(message string) *Result {
	return &Result{
		Output:   os.Stdout,
		ExitCode: CodeSuccess,
		Message:  message,
	}
}

// Error creates an error exit result that outputs to stderr with exit code 1.
func Error(message string) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: CodeError,
		Message:  message,
	}
}

// Errorf creates an error exit result with formatted message.
func Errorf(format string, a ...any) *Result {
	return Error(fmt.Sprintf(format, a...))
}

// NoMatch reports that no path matched anything, with exit code 2.
func NoMatch(message string) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: CodeNoMatch,
		Message:  message,
	}
}
