package domain

import "errors"

// ErrorKind is the stable, machine-readable category of a business failure
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindForbidden        ErrorKind = "FORBIDDEN"
	KindAlreadyProcessed ErrorKind = "ALREADY_PROCESSED"
	KindInvalidState     ErrorKind = "INVALID_STATE"
	KindBookUnavailable  ErrorKind = "BOOK_UNAVAILABLE"
	KindCapacityExceeded ErrorKind = "CAPACITY_EXCEEDED"
	KindInvalidArgument  ErrorKind = "INVALID_ARGUMENT"
	KindInternal         ErrorKind = "INTERNAL"
)

// Error is an expected business-rule failure
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a typed error with a custom message
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// InvalidArgument creates an INVALID_ARGUMENT error
func InvalidArgument(message string) *Error {
	return NewError(KindInvalidArgument, message)
}

// KindOf returns the kind of err, or KindInternal for anything that is not a
// business-rule failure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrStockInvariant     = errors.New("book stock invariant violated")
)

// Loan engine errors
var (
	ErrLoanNotFound            = NewError(KindNotFound, "loan not found")
	ErrBookNotFound            = NewError(KindNotFound, "book not found")
	ErrNotLoanOwner            = NewError(KindForbidden, "loan belongs to another borrower")
	ErrLoanAlreadyProcessed    = NewError(KindAlreadyProcessed, "loan has already been processed")
	ErrLoanNotOpen             = NewError(KindInvalidState, "loan is not currently borrowed")
	ErrExtensionLimitReached   = NewError(KindInvalidState, "loan extension limit reached")
	ErrDuplicatePendingRequest = NewError(KindInvalidState, "a pending request for this book already exists")
	ErrBookUnavailable         = NewError(KindBookUnavailable, "book is not available")
	ErrCapacityExceeded        = NewError(KindCapacityExceeded, "maximum number of active loans reached")
	ErrReasonRequired          = NewError(KindInvalidArgument, "rejection reason is required")
	ErrReturnDateRequired      = NewError(KindInvalidArgument, "desired return date is required")
	ErrReturnDateInPast        = NewError(KindInvalidArgument, "desired return date cannot be in the past")
)
