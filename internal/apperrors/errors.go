// Package apperrors defines the error taxonomy shared by the scorer, the advisor
// and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the error class.
type Code string

const (
	CodeValidation          Code = "VALIDATION_FAILED"
	CodeConfiguration       Code = "CONFIGURATION_INVALID"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
)

// ProviderUnavailableMessage is the only text callers ever see on provider failures.
const ProviderUnavailableMessage = "The AI is temporarily unavailable. Please try again later."

const internalMessage = "internal server error"

// Error is a classified application error.
type Error struct {
	Code    Code
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidation reports bad caller input. The message is returned to the caller as is.
func NewValidation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewConfiguration reports a missing or malformed server-side resource.
func NewConfiguration(message string, err error) *Error {
	return &Error{Code: CodeConfiguration, Message: message, Err: err}
}

// NewProviderUnavailable wraps an external provider failure. The wrapped
// error is kept for logs but never exposed through PublicMessage.
func NewProviderUnavailable(provider string, err error) *Error {
	return &Error{
		Code:    CodeProviderUnavailable,
		Message: ProviderUnavailableMessage,
		Details: fmt.Sprintf("provider: %s", provider),
		Err:     err,
	}
}

// CodeOf returns the code of the first *Error in the chain, or "" when none.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return CodeOf(err) == CodeConfiguration
}

// IsProviderUnavailable reports whether err is a provider failure.
func IsProviderUnavailable(err error) bool {
	return CodeOf(err) == CodeProviderUnavailable
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConfiguration, CodeProviderUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that is safe to show to a caller.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return internalMessage
	}

	switch appErr.Code {
	case CodeProviderUnavailable:
		return ProviderUnavailableMessage
	case CodeValidation, CodeConfiguration:
		return appErr.Message
	default:
		return internalMessage
	}
}
