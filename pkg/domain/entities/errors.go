package entities

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies failures crossing a component boundary
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindPersistence
	KindCriticalInconsistency
)

// String method for ErrorKind enum
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFoundError"
	case KindInsufficientStock:
		return "InsufficientStockError"
	case KindPersistence:
		return "PersistenceError"
	case KindCriticalInconsistency:
		return "CriticalInconsistencyError"
	default:
		return "Unknown"
	}
}

// ErrConcurrentUpdate is wrapped by persistence errors when a stale ingredient version is written
var ErrConcurrentUpdate = errors.New("ingredient was modified concurrently")

// Error is the generic tagged error for validation, lookup and persistence failures
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a NotFoundError with a formatted message
func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewPersistenceError wraps a storage failure for the named operation
func NewPersistenceError(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}

// AsPersistenceError tags an untyped storage error as a PersistenceError. Errors that
// already carry a kind pass through unchanged.
func AsPersistenceError(op string, err error) error {
	if err == nil || KindOf(err) != KindUnknown {
		return err
	}
	return NewPersistenceError(op, err)
}

// InsufficientStockError reports an ingredient that cannot cover a requirement
type InsufficientStockError struct {
	IngredientID   IngredientID
	IngredientName string
	Available      decimal.Decimal
	Required       decimal.Decimal
	Unit           string

	// Message overrides the default text when several shortages are aggregated
	Message string
}

func (e *InsufficientStockError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	name := e.IngredientName
	if name == "" {
		name = string(e.IngredientID)
	}
	return fmt.Sprintf("insufficient stock for ingredient %s: available %s %s, required %s %s",
		name, e.Available.String(), e.Unit, e.Required.String(), e.Unit)
}

// CriticalInconsistencyError means the order was persisted but its stock deduction failed
type CriticalInconsistencyError struct {
	OrderID string
	Cause   error
}

func (e *CriticalInconsistencyError) Error() string {
	return fmt.Sprintf("order %s was created but inventory update failed: %v; please verify inventory manually",
		e.OrderID, e.Cause)
}

func (e *CriticalInconsistencyError) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of the outermost tagged error in the chain
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var critical *CriticalInconsistencyError
	if errors.As(err, &critical) {
		return KindCriticalInconsistency
	}
	var stock *InsufficientStockError
	var tagged *Error
	stockFound := errors.As(err, &stock)
	taggedFound := errors.As(err, &tagged)

	switch {
	case stockFound && taggedFound:
		// whichever sits closer to the top of the chain wins
		if errors.As(error(tagged), &stock) {
			return tagged.Kind
		}
		return KindInsufficientStock
	case stockFound:
		return KindInsufficientStock
	case taggedFound:
		return tagged.Kind
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether the caller may retry the failed operation unchanged
func IsRetryable(err error) bool {
	return KindOf(err) == KindPersistence
}
