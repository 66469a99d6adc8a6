// Package cli implements the storefront command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootOptions holds global flag values shared by all subcommands.
type rootOptions struct {
	configDir string
	dataDir   string
	jsonMode  bool
	yes       bool
}

// NewRootCmd creates the top-level "storefront" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Shopping cart and checkout for a small storefront",
		Long: "Storefront keeps a persistent shopping cart over a product catalog,\n" +
			"stages quantity edits and checks out by chat message or printed receipt.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default: $(CWD)/.storefront-db)")
	root.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&opts.yes, "yes", "y", false, "confirm destructive actions without asking")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newCatalogCmd(opts))
	root.AddCommand(newCartCmd(opts))
	root.AddCommand(newCheckoutCmd(opts))
	root.AddCommand(newShellCmd(opts))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil && !reported(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// systemError marks failures of the environment (files, storage, config)
// rather than of the shopper's request.
type systemError struct {
	err error
}

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysErr(format string, args ...any) error {
	return &systemError{err: fmt.Errorf(format, args...)}
}

// domainErrors are reported to the shopper through the notifier when they
// occur, so Execute does not print them again.
var domainErrors = []error{
	types.ErrProductNotFound,
	types.ErrOutOfStock,
	types.ErrInvalidQuantity,
	types.ErrNotInCart,
	types.ErrEmptyCart,
	types.ErrUnsavedEdits,
	types.ErrMissingField,
}

func reported(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var sys *systemError
	if errors.As(err, &sys) {
		return exitSysError
	}
	return exitUserError
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
