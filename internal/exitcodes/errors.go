package exitcodes

import "fmt"

// ErrorWithCode pairs an error with the process exit code it maps to.
type ErrorWithCode struct {
	Code    int
	Message string
	Cause   error
}

func (e *ErrorWithCode) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ErrorWithCode) Unwrap() error {
	return e.Cause
}

// NewError creates an error with an explicit exit code
func NewError(code int, message string) *ErrorWithCode {
	return &ErrorWithCode{Code: code, Message: message}
}

// NewErrorf creates an error with formatted message and exit code
func NewErrorf(code int, format string, args ...any) *ErrorWithCode {
	return &ErrorWithCode{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches code to cause.
func WrapError(code int, message string, cause error) *ErrorWithCode {
	return &ErrorWithCode{Code: code, Message: message, Cause: cause}
}

func InvalidArgsError(message string) *ErrorWithCode {
	return NewError(InvalidArgs, message)
}

func InvalidArgsErrorf(format string, args ...any) *ErrorWithCode {
	return NewErrorf(InvalidArgs, format, args...)
}

// PreconditionError reports missing setup such as an unconfigured
// repository or log file.
func PreconditionError(message string) *ErrorWithCode {
	return NewError(PreconditionFailed, message)
}

// InstallErrf reports a release that was selected but could not be
// installed.
func InstallErrf(format string, args ...any) *ErrorWithCode {
	return NewErrorf(InstallError, format, args...)
}
