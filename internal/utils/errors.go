package utils

import (
	"errors"
	"fmt"
)

// DataUnavailableError indicates that every configured market-data provider
// failed or timed out. It is surfaced to the caller as a failed scan, never
// as an empty-but-successful one.
type DataUnavailableError struct {
	Attempts []string
	Cause    error
}

// Error returns the error message string.
func (e *DataUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("market data unavailable from providers %v: %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("market data unavailable from providers %v", e.Attempts)
}

// Unwrap returns the last provider error.
func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}

// NewDataUnavailableError creates a DataUnavailableError recording the
// providers tried and the last failure.
func NewDataUnavailableError(attempts []string, cause error) error {
	return &DataUnavailableError{Attempts: attempts, Cause: cause}
}

// IsDataUnavailable reports whether err is a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}

// InvalidFilterError indicates a request rejected during validation, before
// any provider call was made.
type InvalidFilterError struct {
	Message string
}

// Error returns the error message string.
func (e *InvalidFilterError) Error() string {
	return e.Message
}

// NewInvalidFilterError creates an InvalidFilterError with a formatted message.
func NewInvalidFilterError(format string, args ...interface{}) error {
	return &InvalidFilterError{Message: fmt.Sprintf(format, args...)}
}

// IsInvalidFilter reports whether err is an InvalidFilterError.
func IsInvalidFilter(err error) bool {
	var target *InvalidFilterError
	return errors.As(err, &target)
}

// InsufficientHistoryError indicates a single symbol lacked the price history
// required for an indicator. It is per-symbol and non-fatal: the symbol is
// excluded from indicator-dependent scoring and filtering.
type InsufficientHistoryError struct {
	Symbol   string
	Required int
	Got      int
}

// Error returns the error message string.
func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: need %d bars, got %d", e.Symbol, e.Required, e.Got)
}

// NewInsufficientHistoryError creates an InsufficientHistoryError for a symbol.
func NewInsufficientHistoryError(symbol string, required, got int) error {
	return &InsufficientHistoryError{Symbol: symbol, Required: required, Got: got}
}

// IsInsufficientHistory reports whether err is an InsufficientHistoryError.
func IsInsufficientHistory(err error) bool {
	var target *InsufficientHistoryError
	return errors.As(err, &target)
}
