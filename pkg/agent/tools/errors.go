package tools

import (
	"errors"
	"fmt"
)

// ErrorCode classifies action failures.
type ErrorCode string

const (
	CodeOutOfRange       ErrorCode = "OutOfRange"
	CodeNavigationError  ErrorCode = "NavigationError"
	CodeInvalidArguments ErrorCode = "InvalidArguments"
	CodeUnknownAction    ErrorCode = "UnknownAction"
	CodeTimeout          ErrorCode = "Timeout"
	CodeBlocked          ErrorCode = "Blocked"
	CodeFailed           ErrorCode = "Failed"
)

// ActionError is a failed action. Message is the text handed back to the
// model as the action's result.
type ActionError struct {
	Code    ErrorCode
	Tool    string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func newActionError(code ErrorCode, tool string, err error, format string, args ...interface{}) *ActionError {
	return &ActionError{Code: code, Tool: tool, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the first ActionError in err's chain, or ""
// when there is none.
func CodeOf(err error) ErrorCode {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
