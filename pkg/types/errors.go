package types

import "errors"

// Cart and checkout errors. Each reported condition maps to one
// notification; SeverityOf gives its severity.
var (
	ErrProductNotFound        = errors.New("product not found")
	ErrOutOfStock             = errors.New("product is out of stock")
	ErrStockClamped           = errors.New("quantity limited to available stock")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrNotInCart              = errors.New("product is not in the cart")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrUnsavedEdits           = errors.New("cart has unsaved edits")
	ErrMissingField           = errors.New("required field missing")
	ErrPersistenceWriteFailed = errors.New("could not save cart")
	ErrDeclined               = errors.New("action not confirmed")
	ErrInvalidTransition      = errors.New("invalid checkout transition")
)

// SeverityOf returns the notification severity for a reported error.
// Unknown errors are reported as errors.
func SeverityOf(err error) Severity {
	switch {
	case err == nil:
		return SeveritySuccess
	case errors.Is(err, ErrStockClamped),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrUnsavedEdits),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrPersistenceWriteFailed):
		return SeverityWarning
	case errors.Is(err, ErrDeclined):
		return SeverityInfo
	default:
		return SeverityError
	}
}
