package exitcodes

import "errors"

// Exit codes returned by the autoupdate binary
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments, flags or
	// malformed version/constraint strings
	InvalidArgs = 2

	// PreconditionFailed indicates a precondition was not met
	// (e.g., owner/repo not configured, no install directory)
	PreconditionFailed = 3

	// NetworkError indicates the release registry could not be reached
	// or answered with an error
	NetworkError = 4

	// InstallError indicates downloading or unpacking a release failed
	InstallError = 5

	// ValidationError indicates validation failure
	// (e.g., unreadable config, repository not found)
	ValidationError = 6

	// UpdateAvailable is returned by `check --exit-code` when a newer
	// applicable release exists
	UpdateAvailable = 10
)

// CodeForError returns the appropriate exit code for an error.
// Finds an ErrorWithCode anywhere in the chain, otherwise returns GeneralError.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}

	// Default to general error - callers should use explicit error constructors
	return GeneralError
}
