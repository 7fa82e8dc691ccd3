package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures so transport layers can map them to the
// right response without string matching.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeBusiness    ErrorType = "business"
	ErrorTypeForbidden   ErrorType = "forbidden"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeConsistency ErrorType = "consistency"
	ErrorTypeInternal    ErrorType = "internal"
)

// AppError is a structured application error carrying a machine-readable
// code and a caller-facing message.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		StatusCode: 422,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: 403,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: 409,
	}
}

// NewConsistencyError marks invariant violations discovered at settlement
// time (missing or undersized hold, wallet drift). These need operator
// attention rather than a retry.
func NewConsistencyError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConsistency,
		Code:       code,
		Message:    message,
		StatusCode: 500,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    message,
		Retryable:  true,
		StatusCode: 429,
	}
}

// Predefined common errors.
var (
	ErrAuctionNotFound   = NewNotFoundError("auction")
	ErrPetNotFound       = NewNotFoundError("pet")
	ErrWalletNotFound    = NewNotFoundError("wallet")
	ErrAuctionNotActive  = NewBusinessError("AUCTION_NOT_ACTIVE", "auction is not active")
	ErrAuctionEnded      = NewBusinessError("AUCTION_ENDED", "auction has already ended")
	ErrInsufficientFunds = NewBusinessError("INSUFFICIENT_FUNDS", "insufficient available balance")
	ErrInvalidHoldState  = NewBusinessError("INVALID_HOLD_STATE", "hold is not in the required state")
	ErrMarketDisabled    = &AppError{
		Type:       ErrorTypeBusiness,
		Code:       "MARKET_DISABLED",
		Message:    "marketplace is temporarily unavailable",
		Retryable:  true,
		StatusCode: 503,
	}
)

// Wrap wraps an error with a message using fmt.Errorf with %w.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
