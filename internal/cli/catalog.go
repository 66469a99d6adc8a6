package cli

import (
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the product catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List products with price and stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, hooks{}, func(a *app) error {
				return a.printProducts(a.catalog.Products())
			})
		},
	})
	return cmd
}

// withApp opens the app, runs fn and closes the app. A close failure is
// returned only when fn succeeded.
func withApp(cmd *cobra.Command, opts *rootOptions, h hooks, fn func(a *app) error) error {
	a, err := openApp(cmd, opts, h)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if closeErr := a.Close(); runErr == nil {
		return closeErr
	}
	return runErr
}
