package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPrompt       = errors.New("empty prompt")
	ErrNoImage           = errors.New("no image was generated")
	ErrNoVideoLink       = errors.New("no video download link")
	ErrUnsupportedAspect = errors.New("unsupported aspect ratio")
)

// ValidationError is returned before any remote call is made. Its message is
// shown to the user verbatim.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError with the given user-facing message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// BackendError wraps any failure of the generative backend: a failed call, an
// empty or malformed response, or a failed artifact download.
type BackendError struct {
	Op      string
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError builds a BackendError whose message embeds the cause.
func NewBackendError(op, summary string, cause error) *BackendError {
	msg := summary
	if cause != nil {
		msg = fmt.Sprintf("%s Reason: %s", summary, cause.Error())
	}
	return &BackendError{Op: op, Message: msg, Err: cause}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsBackend reports whether err is (or wraps) a BackendError.
func IsBackend(err error) bool {
	var b *BackendError
	return errors.As(err, &b)
}
