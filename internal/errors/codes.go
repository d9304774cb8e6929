package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure reported to the command line.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the requested item does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeDataIntegrity indicates persisted data violates its invariants.
	ErrCodeDataIntegrity ErrorCode = "DATA_INTEGRITY"
	// ErrCodeEvaluatorUnavailable indicates the challenge evaluator cannot be reached.
	ErrCodeEvaluatorUnavailable ErrorCode = "EVALUATOR_UNAVAILABLE"
	// ErrCodeInternal indicates an unexpected storage or runtime failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// CodedError is a failure carrying an ErrorCode.
type CodedError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *CodedError) WithContext(key string, value any) *CodedError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(format string, args ...any) *CodedError {
	return &CodedError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not found error for the given resource.
func NotFound(resource string, id any) *CodedError {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
	}
}

// DataIntegrity wraps a corrupt persisted value.
func DataIntegrity(msg string, cause error) *CodedError {
	return &CodedError{Code: ErrCodeDataIntegrity, Message: msg, Cause: cause}
}

// EvaluatorUnavailable creates an evaluator failure.
func EvaluatorUnavailable(msg string, cause error) *CodedError {
	return &CodedError{Code: ErrCodeEvaluatorUnavailable, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *CodedError {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if any error in the chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error in the chain.
// Returns the provided default code if no CodedError is found.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return defaultCode
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCodeFromError(err, ErrCodeInternal) {
	case ErrCodeInvalidArgument:
		return 2
	case ErrCodeNotFound:
		return 3
	case ErrCodeDataIntegrity:
		return 4
	case ErrCodeEvaluatorUnavailable:
		return 5
	default:
		return 1
	}
}
