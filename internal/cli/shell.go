package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/storefront/internal/cart"
	"github.com/mesh-intelligence/storefront/internal/checkout"
	"github.com/mesh-intelligence/storefront/pkg/types"
)

const shellHelp = `Commands:
  add <id> [qty]         add a product to the cart
  remove <id>            remove a line
  stage <id> <+n|-n|n>   propose a quantity without saving it
  type <id> <text>       type a quantity; applied after a pause or on blur
  blur <id>              apply typed input now
  commit <id>            save the proposed quantity
  discard <id>           drop the proposed quantity
  show                   show the cart
  clear                  empty the cart
  close                  close the cart, discarding unsaved changes
  checkout               start checkout
  message                choose checkout by chat message
  submit                 enter customer details and send the order
  receipt [home|pickup]  choose checkout by receipt
  print                  print the receipt
  back                   go back one checkout step
  help                   show this help
  exit                   leave the shell`

func newShellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive cart session",
		Long: `Shell keeps one cart session open and reads commands from standard input,
one per line. Quantity edits can be staged and reviewed before they are saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := hooks{
				onUpdate:  func(a *app) types.UpdateFunc { return a.summaryLine },
				onPreview: func(a *app) types.PreviewFunc { return a.previewLine },
			}
			return withApp(cmd, opts, h, runShell)
		},
	}
}

// errExit ends the shell loop.
var errExit = errors.New("exit")

func runShell(a *app) error {
	fmt.Fprintln(a.out, "storefront shell; type help for commands")
	for {
		fmt.Fprintf(a.out, "%s> ", a.flow.Mode())
		line, ok := a.lines.next()
		if !ok {
			fmt.Fprintln(a.out)
			a.input.Flush()
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		err := a.shellCommand(fields[0], fields[1:])
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil && !reported(err) {
			fmt.Fprintln(a.out, "error:", err)
		}
	}
}

func (a *app) shellCommand(name string, args []string) error {
	need := func(n int, usage string) error {
		if len(args) < n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}

	switch name {
	case "help", "?":
		fmt.Fprintln(a.out, shellHelp)
	case "add":
		if err := need(1, "add <id> [qty]"); err != nil {
			return err
		}
		qty := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity %q is not a whole number", args[1])
			}
			qty = n
		}
		_, err := a.store.AddLine(args[0], qty)
		return err
	case "remove":
		if err := need(1, "remove <id>"); err != nil {
			return err
		}
		a.input.Cancel(args[0])
		return a.store.RemoveLine(args[0])
	case "stage":
		if err := need(2, "stage <id> <+n|-n|n>"); err != nil {
			return err
		}
		change, err := cart.ParseChange(args[1])
		if err != nil {
			return fmt.Errorf("%q is not a quantity change", args[1])
		}
		_, err = a.staging.Stage(args[0], change)
		return err
	case "type":
		if err := need(2, "type <id> <text>"); err != nil {
			return err
		}
		a.input.InputText(args[0], strings.Join(args[1:], " "))
	case "blur":
		if err := need(1, "blur <id>"); err != nil {
			return err
		}
		a.input.Blur(args[0])
	case "commit":
		if err := need(1, "commit <id>"); err != nil {
			return err
		}
		a.input.Blur(args[0])
		return a.staging.Commit(args[0])
	case "discard":
		if err := need(1, "discard <id>"); err != nil {
			return err
		}
		a.input.Cancel(args[0])
		a.staging.Discard(args[0])
	case "show":
		return a.printCart()
	case "clear":
		return a.store.Clear()
	case "close":
		a.input.Flush()
		return a.store.Close()
	case "checkout":
		return a.flow.Start()
	case "message":
		return a.flow.ChooseMessage()
	case "submit":
		if a.flow.Mode() == checkout.MethodSelect {
			if err := a.flow.ChooseMessage(); err != nil {
				return err
			}
		}
		if a.flow.Mode() != checkout.MessageForm {
			_, err := a.flow.Submit(checkout.Customer{})
			return err
		}
		_, err := a.flow.Submit(a.readCustomer())
		return err
	case "receipt":
		delivery := ""
		if len(args) > 0 {
			delivery = args[0]
		}
		if _, err := a.flow.ChooseReceipt(delivery); err != nil {
			return err
		}
		content, _ := a.flow.Receipt()
		fmt.Fprint(a.out, content)
	case "print":
		return a.flow.Print()
	case "back":
		return a.flow.Back()
	case "exit", "quit":
		a.input.Flush()
		if err := a.store.Close(); err != nil {
			return err
		}
		a.flow.Close()
		return errExit
	default:
		return fmt.Errorf("unknown command %q; type help for commands", name)
	}
	return nil
}

// readCustomer prompts for each customer field on the shell's input.
func (a *app) readCustomer() checkout.Customer {
	ask := func(prompt string) string {
		fmt.Fprintf(a.out, "%s: ", prompt)
		v, _ := a.lines.next()
		return v
	}
	return checkout.Customer{
		Name:     ask("Name"),
		Phone:    ask("Phone"),
		Address:  ask("Address"),
		Notes:    ask("Notes (optional)"),
		Delivery: ask("Delivery (home/pickup)"),
	}
}
