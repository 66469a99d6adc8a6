package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCartCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, hooks{}, (*app).printCart)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <product-id> [quantity]",
		Short: "Add a product to the cart",
		Long: `Add increases the quantity of a product already in the cart, or adds a new
line. Quantities above the available stock are limited to it.

Example:
  storefront cart add mug
  storefront cart add mug 3`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("quantity %q is not a whole number", args[1])
				}
				qty = n
			}
			return withApp(cmd, opts, hooks{}, func(a *app) error {
				if _, err := a.store.AddLine(args[0], qty); err != nil {
					return err
				}
				return a.printCart()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, hooks{}, func(a *app) error {
				if err := a.store.RemoveLine(args[0]); err != nil {
					return err
				}
				return a.printCart()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, hooks{}, func(a *app) error {
				return a.store.Clear()
			})
		},
	})

	return cmd
}
