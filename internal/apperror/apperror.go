package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrExpired         = errors.New("expired")
	ErrAlreadyConsumed = errors.New("already consumed")
	ErrIssueFailed     = errors.New("credential issue failed")
	ErrDeliveryFailed  = errors.New("delivery failed")
	ErrNotEligible     = errors.New("not eligible")
	ErrValidation      = errors.New("validation error")
	ErrForbidden       = errors.New("forbidden")
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // safe to show in logs and operator replies
	Cause   error  // underlying failure, if any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func Expired(resource, id string) *AppError {
	return &AppError{
		Err:     ErrExpired,
		Message: fmt.Sprintf("%s %s has expired", resource, id),
	}
}

func AlreadyConsumed(resource, id string) *AppError {
	return &AppError{
		Err:     ErrAlreadyConsumed,
		Message: fmt.Sprintf("%s %s was already used", resource, id),
	}
}

// IssueFailed marks a retryable failure of the external membership system.
func IssueFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrIssueFailed,
		Message: "could not issue admission credential",
		Cause:   cause,
	}
}

// DeliveryFailed is terminal for the session it happened on.
func DeliveryFailed(token string, cause error) *AppError {
	return &AppError{
		Err:     ErrDeliveryFailed,
		Message: fmt.Sprintf("delivery for session %s failed", token),
		Cause:   cause,
	}
}

func NotEligible(missing int) *AppError {
	return &AppError{
		Err:     ErrNotEligible,
		Message: fmt.Sprintf("%d more referrals required", missing),
	}
}

func ValidationFailed(message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
