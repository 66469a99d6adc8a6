package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// cartJSON is the --json shape of the cart.
type cartJSON struct {
	Lines     []types.CartLine `json:"lines"`
	Total     decimal.Decimal  `json:"total"`
	ItemCount int              `json:"item_count"`
	Unsaved   int              `json:"unsaved,omitempty"`
}

// lockedWriter serializes writes from the REPL and from the debounce timers
// that render previews on their own goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// lockedPair wraps out and errOut, sharing one lock when they are the same
// writer.
func lockedPair(out, errOut io.Writer) (io.Writer, io.Writer) {
	lo := &lockedWriter{w: out}
	if errOut == out {
		return lo, lo
	}
	return lo, &lockedWriter{w: errOut}
}

// writeTable renders rows through a tabwriter and trims trailing spaces.
func writeTable(out io.Writer, header string, rows [][]string) {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, underline(header))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
}

func underline(header string) string {
	cols := strings.Split(header, "\t")
	for i, c := range cols {
		cols[i] = strings.Repeat("-", len(c))
	}
	return strings.Join(cols, "\t")
}

func (a *app) printProducts(products []types.Product) error {
	if a.json {
		return printJSON(a.out, products)
	}
	if len(products) == 0 {
		fmt.Fprintln(a.out, "No products found.")
		return nil
	}
	rows := make([][]string, len(products))
	for i, p := range products {
		stock := "-"
		if n, ok := p.StockBound(); ok {
			stock = fmt.Sprint(n)
		}
		rows[i] = []string{p.ID, p.Title, a.formatter.Amount(p.Price), stock}
	}
	writeTable(a.out, "ID\tTITLE\tPRICE\tSTOCK", rows)
	fmt.Fprintf(a.out, "Total: %d product(s)\n", len(products))
	return nil
}

// printCart renders committed lines with any staged proposal beside them.
func (a *app) printCart() error {
	rows := a.staging.View()
	if a.json {
		return printJSON(a.out, cartJSON{
			Lines:     a.store.Lines(),
			Total:     a.store.Total(),
			ItemCount: a.store.ItemCount(),
			Unsaved:   a.staging.PendingCount(),
		})
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "Your cart is empty.")
		return nil
	}
	table := make([][]string, len(rows))
	for i, r := range rows {
		qty := fmt.Sprint(r.Line.Quantity)
		switch {
		case r.Removal:
			qty += " -> remove (unsaved)"
		case r.Unsaved:
			qty += fmt.Sprintf(" -> %d (unsaved)", r.Proposed)
		}
		table[i] = []string{r.Line.ProductID, r.Line.Title, qty, a.formatter.Amount(r.Line.UnitPrice), a.formatter.Amount(r.Line.Subtotal())}
	}
	writeTable(a.out, "ID\tTITLE\tQTY\tPRICE\tSUBTOTAL", table)
	fmt.Fprintf(a.out, "Items: %d  Total: %s\n", a.store.ItemCount(), a.formatter.Amount(a.store.Total()))
	return nil
}

// summaryLine is printed by the shell after every committed change.
func (a *app) summaryLine(lines []types.CartLine, total decimal.Decimal, itemCount int) {
	fmt.Fprintf(a.out, "cart: %d line(s), %d item(s), %s\n", len(lines), itemCount, a.formatter.Amount(total))
}

// previewLine is printed by the shell after every staging change.
func (a *app) previewLine(rows []types.LineView) {
	var unsaved []string
	for _, r := range rows {
		if !r.Unsaved {
			continue
		}
		if r.Removal {
			unsaved = append(unsaved, r.Line.Title+" -> remove")
		} else {
			unsaved = append(unsaved, fmt.Sprintf("%s %d -> %d", r.Line.Title, r.Line.Quantity, r.Proposed))
		}
	}
	if len(unsaved) == 0 {
		fmt.Fprintln(a.out, "unsaved: none")
		return
	}
	fmt.Fprintf(a.out, "unsaved: %s\n", strings.Join(unsaved, ", "))
}
