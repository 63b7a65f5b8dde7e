// Package errs implements the closed error-kind taxonomy from the error
// handling design: a fixed set of kinds (not Go types) that every surfaced
// failure maps onto, carried through the system as a typed Error and mapped
// to HTTP once, at the edge.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the fixed error kinds. It is a closed set; do not add values
// without updating every switch over Kind in internal/server/api.
type Kind string

const (
	KindValidation       Kind = "ValidationError"
	KindAuth             Kind = "AuthError"
	KindAIUnavailable    Kind = "AIUnavailable"
	KindTimeout          Kind = "Timeout"
	KindBadMaterial      Kind = "BadMaterial"
	KindDimensionMismatch Kind = "DimensionMismatch"
	KindPromptTooLarge   Kind = "PromptTooLarge"
	KindPartialCompletion Kind = "PartialCompletion"
	KindAttachmentFailed Kind = "AttachmentProcessingFailed"
	KindInternal         Kind = "InternalError"
)

// Error is the typed error every component surfaces. Kind drives HTTP mapping
// and client retry affordances; Message is a short, human-readable sentence;
// Cause is the wrapped underlying error, if any.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, errs.KindTimeout) style checks by comparing kinds
// when both sides are *Error.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}

	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error    { return New(KindValidation, message) }
func AIUnavailable(cause error) *Error    { return Wrap(KindAIUnavailable, "the AI service is currently unavailable", cause) }
func Timeout(message string, cause error) *Error {
	return Wrap(KindTimeout, message, cause)
}
func BadMaterial(message string) *Error { return New(KindBadMaterial, message) }
func DimensionMismatch(message string) *Error {
	return New(KindDimensionMismatch, message)
}
func PromptTooLarge(message string) *Error { return New(KindPromptTooLarge, message) }
func PartialCompletion(message string, cause error) *Error {
	return Wrap(KindPartialCompletion, message, cause)
}
func AttachmentProcessingFailed(cause error) *Error {
	return Wrap(KindAttachmentFailed, "could not process the attached file", cause)
}
func Internal(cause error) *Error { return Wrap(KindInternal, "an internal error occurred", cause) }

// KindOf extracts the Kind from err if it is, or wraps, an *Error; otherwise
// returns KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// RetryableToClient reports whether the chat UI should offer a retry
// affordance for this kind, per §7's user-visible behavior rule.
func RetryableToClient(kind Kind) bool {
	switch kind {
	case KindAIUnavailable, KindTimeout, KindPartialCompletion:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a Kind to the HTTP status code it is surfaced as.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return 400
	case KindAuth:
		return 401
	case KindAIUnavailable:
		return 503
	case KindTimeout:
		return 504
	case KindBadMaterial:
		return 422
	case KindDimensionMismatch:
		return 500
	case KindPromptTooLarge:
		return 413
	case KindPartialCompletion:
		return 200
	case KindAttachmentFailed:
		return 422
	default:
		return 500
	}
}
