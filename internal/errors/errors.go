// Package errors provides unified error handling using the protocol's own
// error-code vocabulary.
package errors

import "fmt"

// Code is the protocol-level error code surfaced on the outbound `error`
// event and the supplemented `.failed` event.
type Code string

const (
	CodeInvalidEvent         Code = "invalid_event"
	CodeInvalidAudio         Code = "invalid_audio"
	CodeInvalidAudioFormat   Code = "invalid_audio_format"
	CodeCommitNotAllowed     Code = "commit_not_allowed"
	CodeReconfigureWhileOpen Code = "reconfigure_while_open"
	CodeInternalError        Code = "internal_error"
	CodeServerError          Code = "server_error"
)

// Type groups a Code into one of the taxonomy categories from the error
// handling design: protocol, audio, backend, or transport/fatal.
func (c Code) Type() string {
	switch c {
	case CodeInvalidEvent, CodeCommitNotAllowed, CodeReconfigureWhileOpen:
		return "invalid_request_error"
	case CodeInvalidAudio, CodeInvalidAudioFormat:
		return "invalid_request_error"
	case CodeInternalError, CodeServerError:
		return "server_error"
	default:
		return "server_error"
	}
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable. Only
// backend-facing codes are; protocol and audio errors are caller mistakes
// and retrying them without a different input changes nothing.
func IsRetryable(err error) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	switch appErr.Code {
	case CodeInternalError, CodeServerError:
		return true
	default:
		return false
	}
}
