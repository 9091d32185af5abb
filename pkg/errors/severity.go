// Package errors provides severity-aware error types.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Code classifies an estimation failure.
type Code string

// Error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeAddressNotFound    Code = "ADDRESS_NOT_FOUND"
	CodeNoSolarData        Code = "NO_SOLAR_DATA"
	CodeMissingCredentials Code = "MISSING_CREDENTIALS"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrInvalidInput       = &Error{Code: CodeInvalidInput}
	ErrAddressNotFound    = &Error{Code: CodeAddressNotFound}
	ErrNoSolarData        = &Error{Code: CodeNoSolarData}
	ErrMissingCredentials = &Error{Code: CodeMissingCredentials}
)

// Error is a structured error with context.
type Error struct {
	Code        Code     `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Field       string   `json:"field,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s (field: %s)", e.Severity, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewInvalidInput creates an error for a rejected numeric input.
func NewInvalidInput(field, format string, args ...any) *Error {
	return &Error{
		Code:        CodeInvalidInput,
		Message:     fmt.Sprintf(format, args...),
		Severity:    SeverityError,
		Field:       field,
		Recoverable: true,
	}
}

// NewAddressNotFound creates an error for an address the geocoder could not match.
func NewAddressNotFound(address string) *Error {
	msg := "address is empty"
	if address != "" {
		msg = fmt.Sprintf("no geocoding match for %q", address)
	}
	return &Error{
		Code:        CodeAddressNotFound,
		Message:     msg,
		Severity:    SeverityWarning,
		Field:       "address",
		Recoverable: true,
	}
}

// NewNoSolarData creates an error for coordinates without solar-potential coverage.
func NewNoSolarData(lat, lon float64) *Error {
	return &Error{
		Code:        CodeNoSolarData,
		Message:     fmt.Sprintf("no solar potential data at %.6f,%.6f", lat, lon),
		Severity:    SeverityWarning,
		Recoverable: true,
	}
}

// NewMissingCredentials creates a configuration warning for an absent API key.
func NewMissingCredentials(provider, envVar string) *Error {
	return &Error{
		Code:        CodeMissingCredentials,
		Message:     fmt.Sprintf("%s API key not configured (set %s)", provider, envVar),
		Severity:    SeverityWarning,
		Field:       envVar,
		Recoverable: true,
	}
}

// CodeOf extracts the code of err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
