package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/storefront/internal/checkout"
)

func newCheckoutCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Check out the cart",
		Long: `Checkout sends the cart as a chat message or renders a printable receipt.

The cart must not be empty and must have no unsaved edits.`,
	}
	cmd.AddCommand(newCheckoutMessageCmd(opts))
	cmd.AddCommand(newCheckoutReceiptCmd(opts))
	return cmd
}

func newCheckoutMessageCmd(opts *rootOptions) *cobra.Command {
	var customer checkout.Customer
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send the order as a chat message",
		Long: `Message formats the order without tax and prints the chat link that sends it.

Example:
  storefront checkout message --name "Asha" --phone "98765 43210" --address "12 Lake View"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, hooks{}, func(a *app) error {
				if err := a.flow.Start(); err != nil {
					return err
				}
				defer a.flow.Close()
				if err := a.flow.ChooseMessage(); err != nil {
					return err
				}
				order, err := a.flow.Submit(customer)
				if err != nil {
					return err
				}
				if a.json {
					return printJSON(a.out, struct {
						Order checkout.Order `json:"order"`
						Link  string         `json:"link"`
					}{order, a.opener.last})
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&customer.Name, "name", "", "customer name (required)")
	cmd.Flags().StringVar(&customer.Phone, "phone", "", "customer phone (required)")
	cmd.Flags().StringVar(&customer.Address, "address", "", "delivery address (required)")
	cmd.Flags().StringVar(&customer.Notes, "notes", "", "order notes")
	cmd.Flags().StringVar(&customer.Delivery, "delivery", "home", "delivery option (home, pickup)")
	return cmd
}

func newCheckoutReceiptCmd(opts *rootOptions) *cobra.Command {
	var (
		delivery string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Render a receipt with tax",
		Long: `Receipt prices the cart with tax and prints the receipt. With --output the
receipt is also sent to the printer, written to the given file.

Example:
  storefront checkout receipt --delivery pickup
  storefront checkout receipt --output receipt.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, hooks{}, func(a *app) error {
				if err := a.flow.Start(); err != nil {
					return err
				}
				defer a.flow.Close()
				order, err := a.flow.ChooseReceipt(delivery)
				if err != nil {
					return err
				}
				content, _ := a.flow.Receipt()

				if output != "" {
					a.printer.path = output
					if err := a.flow.Print(); err != nil {
						return err
					}
				}
				if a.json {
					return printJSON(a.out, struct {
						Order   checkout.Order `json:"order"`
						Receipt string         `json:"receipt"`
					}{order, content})
				}
				_, err = fmt.Fprint(a.out, content)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&delivery, "delivery", "home", "delivery option (home, pickup)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "send the receipt to the printer, writing it to this file")
	return cmd
}
