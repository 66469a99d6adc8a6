package types

import "github.com/shopspring/decimal"

// UpdateFunc is the render callback invoked after every committed mutation.
type UpdateFunc func(lines []CartLine, total decimal.Decimal, itemCount int)

// PreviewFunc is invoked after a staging change. It is display-only; nothing
// it receives has been persisted.
type PreviewFunc func(rows []LineView)

// Confirmer asks the shopper to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

// Confirm calls f(prompt).
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm accepts every prompt.
var AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

// LinkOpener opens an outbound URL in a new browsing context. No response
// is awaited.
type LinkOpener interface {
	Open(url string) error
}

// Printer sends rendered receipt content to the host print surface.
type Printer interface {
	Print(content string) error
}
