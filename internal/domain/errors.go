package domain

import "errors"

// ErrorType tags every failure the engine can surface to presentation.
type ErrorType string

const (
	ErrPermissionDenied    ErrorType = "PERMISSION_DENIED"
	ErrPositionUnavailable ErrorType = "POSITION_UNAVAILABLE"
	ErrTimeout             ErrorType = "TIMEOUT"
	ErrInvalidPincode      ErrorType = "INVALID_PINCODE"
	ErrAPIError            ErrorType = "API_ERROR"
	ErrDepotNotFound       ErrorType = "DEPOT_NOT_FOUND"
	ErrNetworkError        ErrorType = "NETWORK_ERROR"
	ErrCacheError          ErrorType = "CACHE_ERROR"
)

// PricingError is the single tagged error shape used across the engine.
// Heterogeneous failures (positioning capability, HTTP transport, validation)
// are dispatched into it once at the boundary that produced them.
type PricingError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message,omitempty"`
	Recoverable bool      `json:"recoverable"`
}

func (e *PricingError) Error() string {
	if e.Message == "" {
		return string(e.Type)
	}
	return string(e.Type) + ": " + e.Message
}

// NewError builds a recoverable PricingError; every type in the enum is
// recoverable by default.
func NewError(t ErrorType, message string) *PricingError {
	return &PricingError{Type: t, Message: message, Recoverable: true}
}

// AsPricingError extracts a PricingError from err, wrapping unknown errors as
// API_ERROR so presentation always sees a tagged variant.
func AsPricingError(err error) *PricingError {
	var pe *PricingError
	if errors.As(err, &pe) {
		return pe
	}
	return NewError(ErrAPIError, err.Error())
}

// IsErrorType reports whether err carries the given tag.
func IsErrorType(err error, t ErrorType) bool {
	var pe *PricingError
	return errors.As(err, &pe) && pe.Type == t
}
