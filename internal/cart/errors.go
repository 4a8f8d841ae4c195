package cart

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes cart errors.
type ErrorCode string

const (
	// CodeIdentityUnavailable indicates the identity provider was unreachable
	// or could not create an identity.
	CodeIdentityUnavailable ErrorCode = "IDENTITY_UNAVAILABLE"

	// CodeStoreUnavailable indicates a remote read or write failed, including timeouts.
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// CodePreconditionFailed indicates a request that cannot be applied as given.
	// A mutation on a busy item is NOT reported with this code; it is a silent no-op.
	CodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
)

// Error is the error type returned across component boundaries.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "upsert", "list").
	Op string

	// ProductID identifies the affected line item, if any.
	ProductID string

	// Message is a human-readable description. Optional when Err is set.
	Message string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.ProductID != "" {
		return fmt.Sprintf("%s: %s %s: %s", e.Code, e.Op, e.ProductID, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewIdentityError wraps a provider failure.
func NewIdentityError(op string, err error) *Error {
	return &Error{Code: CodeIdentityUnavailable, Op: op, Err: err}
}

// NewStoreError wraps a remote store failure.
func NewStoreError(op, productID string, err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Op: op, ProductID: productID, Err: err}
}

// NewPreconditionError reports invalid input.
func NewPreconditionError(op, productID, message string) *Error {
	return &Error{Code: CodePreconditionFailed, Op: op, ProductID: productID, Message: message}
}

// IsIdentityUnavailable reports whether err carries CodeIdentityUnavailable.
func IsIdentityUnavailable(err error) bool {
	return hasCode(err, CodeIdentityUnavailable)
}

// IsStoreUnavailable reports whether err carries CodeStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return hasCode(err, CodeStoreUnavailable)
}

// IsPreconditionFailed reports whether err carries CodePreconditionFailed.
func IsPreconditionFailed(err error) bool {
	return hasCode(err, CodePreconditionFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
