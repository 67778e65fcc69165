// internal/errors/interface.go
package errors

// ErrorCode identifies one failure class.
type ErrorCode string

// Error is an application error with a stable code and an optional cause.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	Unwrap() error
}
