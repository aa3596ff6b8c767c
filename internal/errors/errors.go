// Package errors defines the error values shared across the storefront service.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the backend or a local store has no such entity.
	ErrNotFound = stderrors.New("not found")

	// ErrMalformedResponse is returned when the backend answers 2xx with an unexpected shape.
	ErrMalformedResponse = stderrors.New("malformed response from backend")

	// ErrInvalidCoupon is returned when coupon verification answers valid=false.
	ErrInvalidCoupon = stderrors.New("invalid coupon")

	// ErrPaymentUnavailable is returned when an online payment is requested before the
	// payment gateway is initialised.
	ErrPaymentUnavailable = stderrors.New("payment system loading, please wait")

	// ErrUnauthorized is returned when no session or admin token is present.
	ErrUnauthorized = stderrors.New("unauthorized")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// UpstreamError is a non-2xx answer from the REST backend.
type UpstreamError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 from the backend.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// CouponError wraps ErrInvalidCoupon with the server's message.
type CouponError struct {
	Code    string
	Message string
}

func (e *CouponError) Error() string {
	if e.Message == "" {
		return "Invalid Coupon"
	}
	return e.Message
}

func (e *CouponError) Unwrap() error { return ErrInvalidCoupon }

// Is, As and New re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

func New(text string) error { return stderrors.New(text) }

// UserMessage returns the text a client should show for err.
func UserMessage(err error, fallback string) string {
	var ve *ValidationError
	if As(err, &ve) {
		return ve.Message
	}
	var ce *CouponError
	if As(err, &ce) {
		return ce.Error()
	}
	var ue *UpstreamError
	if As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	if Is(err, ErrPaymentUnavailable) {
		return "Payment system loading, please wait..."
	}
	return fallback
}
