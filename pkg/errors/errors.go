// Package errors provides structured errors with stable machine-readable
// codes. Every failure that crosses a package boundary is wrapped into a
// StructuredError so callers can branch on the code instead of matching
// message strings.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a failure class.
type ErrorCode string

const (
	// ErrCodeValidation marks profile or override constraint violations.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"
	// ErrCodeClusterUnreachable marks failures to reach the target cluster.
	ErrCodeClusterUnreachable ErrorCode = "CLUSTER_UNREACHABLE"
	// ErrCodeTimeout marks operations that exceeded their deadline.
	ErrCodeTimeout ErrorCode = "OPERATION_TIMEOUT"
	// ErrCodePartialDeployment marks deployments where some services
	// applied and others failed.
	ErrCodePartialDeployment ErrorCode = "PARTIAL_DEPLOYMENT"
	// ErrCodeRenderInconsistent marks internally inconsistent resolved
	// configuration detected while producing values artifacts.
	ErrCodeRenderInconsistent ErrorCode = "RENDER_INCONSISTENT"
	// ErrCodeConcurrentOperation marks operations rejected because another
	// operation already holds the profile lock.
	ErrCodeConcurrentOperation ErrorCode = "CONCURRENT_OPERATION"
	// ErrCodeNotFound marks missing profiles, backups or releases.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists marks creation of a resource that is present.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeInternal marks unexpected failures.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StructuredError carries an ErrorCode, a human-readable message and
// optional detail fields alongside the wrapped cause.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *StructuredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StructuredError) Unwrap() error { return e.Err }

// New returns a StructuredError without a cause.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message}
}

// Newf returns a StructuredError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *StructuredError {
	return &StructuredError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a StructuredError wrapping err. A nil err yields nil so
// call sites can wrap unconditionally.
func Wrap(code ErrorCode, message string, err error) error {
	if err == nil {
		return nil
	}
	return &StructuredError{Code: code, Message: message, Err: err}
}

// WrapWithContext is Wrap with detail fields attached.
func WrapWithContext(code ErrorCode, message string, err error, details map[string]any) error {
	if err == nil {
		return nil
	}
	return &StructuredError{Code: code, Message: message, Details: details, Err: err}
}

// WithDetail attaches a detail field and returns the receiver.
func (e *StructuredError) WithDetail(key string, value any) *StructuredError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// CodeOf walks the error chain and returns the code of the outermost
// StructuredError, or ErrCodeInternal when none is found.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *StructuredError
	return stderrors.As(err, &se) && se.Code == code
}
