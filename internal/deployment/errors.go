package deployment

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes domain errors.
type ErrorCode string

const (
	// ErrCodeNoActiveDeployment indicates the operation needs an active deployment.
	ErrCodeNoActiveDeployment ErrorCode = "NO_ACTIVE_DEPLOYMENT"

	// ErrCodeDeploymentActive indicates a deployment is already in progress.
	ErrCodeDeploymentActive ErrorCode = "DEPLOYMENT_ACTIVE"

	// ErrCodeNoBudget indicates the operation needs a deployment budget.
	ErrCodeNoBudget ErrorCode = "NO_BUDGET"

	// ErrCodeNoSavingsTracker indicates the operation needs a savings tracker.
	ErrCodeNoSavingsTracker ErrorCode = "NO_SAVINGS_TRACKER"

	// ErrCodeUnknownCategory indicates an expense category id not in the budget.
	ErrCodeUnknownCategory ErrorCode = "UNKNOWN_CATEGORY"

	// ErrCodeDuplicateSnapshot indicates a snapshot for that month already exists.
	ErrCodeDuplicateSnapshot ErrorCode = "DUPLICATE_SNAPSHOT"

	// ErrCodeInvalidDates indicates departure would fall after expected return.
	ErrCodeInvalidDates ErrorCode = "INVALID_DATES"

	// ErrCodeInvalidAmount indicates a negative money amount where none is allowed.
	ErrCodeInvalidAmount ErrorCode = "INVALID_AMOUNT"

	// ErrCodeInvalidValue indicates an enum value outside its known set.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"
)

// Error is a domain precondition failure.
//
// An operation that returns an *Error has left every record untouched, so
// a caller that prefers the silent no-op behaviour can discard it. Compare
// with errors.Is against the sentinel values below; Is matches on Code.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrNoActiveDeployment = &Error{Code: ErrCodeNoActiveDeployment, Message: "no active deployment"}
	ErrDeploymentActive   = &Error{Code: ErrCodeDeploymentActive, Message: "a deployment is already active"}
	ErrNoBudget           = &Error{Code: ErrCodeNoBudget, Message: "no deployment budget"}
	ErrNoSavingsTracker   = &Error{Code: ErrCodeNoSavingsTracker, Message: "no savings tracker"}
	ErrUnknownCategory    = &Error{Code: ErrCodeUnknownCategory, Message: "unknown expense category"}
	ErrDuplicateSnapshot  = &Error{Code: ErrCodeDuplicateSnapshot, Message: "snapshot already recorded for month"}
	ErrInvalidDates       = &Error{Code: ErrCodeInvalidDates, Message: "departure date is after expected return date"}
	ErrInvalidAmount      = &Error{Code: ErrCodeInvalidAmount, Message: "amount must not be negative"}
	ErrInvalidValue       = &Error{Code: ErrCodeInvalidValue, Message: "invalid value"}
)

// newError builds an *Error carrying a specific message for a sentinel's code.
func newError(sentinel *Error, format string, args ...any) *Error {
	return &Error{Code: sentinel.Code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the domain error code in err's chain, or "" if none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsDomainError reports whether err is a precondition failure rather than
// an infrastructure error.
func IsDomainError(err error) bool {
	return CodeOf(err) != ""
}
