// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

type appError struct {
	code    ErrorCode
	message string
	err     error
}

func (e *appError) Error() string {
	msg := e.message
	if msg == "" {
		msg = GetErrorMessage(e.code)
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

func (e *appError) Code() ErrorCode { return e.code }

func (e *appError) WithMessage(msg string) Error {
	return &appError{code: e.code, message: msg, err: e.err}
}

func (e *appError) Unwrap() error { return e.err }

// New returns a coded error without a cause.
func New(code ErrorCode) Error {
	return &appError{code: code}
}

// Wrap attaches code to err. A nil err still yields a non-nil Error.
func Wrap(code ErrorCode, err error) Error {
	return &appError{code: code, err: err}
}

// Newf returns a coded error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) Error {
	return &appError{code: code, message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first coded error in err's chain,
// or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return ""
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(Error); ok && e.Code() == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
