// Package types defines the cart, pricing and checkout entity types, the
// interfaces the host page implements (catalog, notifier, confirmer, link
// opener, printer, storage) and the standard errors of the storefront
// engine.
package types
