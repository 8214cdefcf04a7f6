package dispatch

import (
	"errors"
	"fmt"
	"net/http"
)

// Policy error codes.
const (
	CodeTemplateUnavailable = "template_unavailable"
	CodeInsufficientCredits = "insufficient_credits"
)

// Validation error codes (template schema violations).
const (
	CodeMediaHeaderRequired         = "media_header_required"
	CodeTemplateDoesNotSupportMedia = "template_does_not_support_media"
	CodeButtonMismatch              = "button_mismatch"
	CodeTemplateCannotCarryRawMedia = "template_cannot_carry_raw_media"
	CodeUnsupportedMultipleMedia    = "unsupported_multiple_media"
)

// Media error codes.
const (
	CodeInvalidMediaReference = "invalid_media_reference"
	CodeUnsupportedMediaType  = "unsupported_media_type"
	CodeMixedMediaFormats     = "mixed_media_formats"
	CodeMediaFormatMismatch   = "media_format_mismatch"
)

// ValidationError covers missing or malformed request fields and template
// schema violations. Detected before any provider call.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// PolicyError is a window/credit policy rejection, surfaced to the user
// with an actionable message.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

// MediaError aborts the whole send before any provider call.
type MediaError struct {
	Code    string
	Message string
}

func (e *MediaError) Error() string {
	return e.Message
}

func mediaErrorf(code, format string, args ...interface{}) *MediaError {
	return &MediaError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a non-2xx messaging-API response; the raw body is
// kept for diagnostics.
type ProviderError struct {
	Status int
	Body   string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider rejected send: %s", e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider call failed: %v", e.Err)
	}
	return "provider call failed"
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PersistenceError signals an accepted-but-unrecorded state: the provider
// took the send but zero rows landed locally.
type PersistenceError struct {
	Message string
}

func (e *PersistenceError) Error() string {
	return e.Message
}

// HTTPStatus maps a pipeline error onto the response status the API layer
// returns.
func HTTPStatus(err error) int {
	var (
		validationErr  *ValidationError
		policyErr      *PolicyError
		mediaErr       *MediaError
		providerErr    *ProviderError
		persistenceErr *PersistenceError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &policyErr), errors.As(err, &mediaErr):
		return http.StatusBadRequest
	case errors.As(err, &providerErr), errors.As(err, &persistenceErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode extracts the machine-readable code, if the error carries one.
func ErrorCode(err error) string {
	var (
		validationErr *ValidationError
		policyErr     *PolicyError
		mediaErr      *MediaError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Code
	case errors.As(err, &policyErr):
		return policyErr.Code
	case errors.As(err, &mediaErr):
		return mediaErr.Code
	default:
		return ""
	}
}
