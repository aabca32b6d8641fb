package cli

import "errors"

var (
	// ErrSourcesFailed is returned when a check completed but at least one
	// update source could not be checked.
	ErrSourcesFailed = errors.New("some update sources could not be checked")

	// ErrAborted is returned when the user aborts an operation.
	ErrAborted = errors.New("operation aborted by user")
)

// Exit codes
const (
	ExitOK            = 0
	ExitError         = 1
	ExitSourcesFailed = 2
)

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrSourcesFailed):
		return ExitSourcesFailed
	default:
		return ExitError
	}
}
