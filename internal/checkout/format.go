package checkout

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// Display defaults.
const (
	DefaultCurrencySymbol = "Rs."
	DefaultLinkBase       = "https://wa.me/"
	timestampLayout       = "2006-01-02 15:04 MST"
	receiptWidth          = 40
)

// ReceiptInfo is the static header and footer text of a receipt.
type ReceiptInfo struct {
	StoreName    string
	StoreAddress string
	Footer       string
}

// Formatter renders orders as message text and printable receipts.
type Formatter struct {
	currency   string
	minorUnits int32
	printer    *message.Printer
	point      string
	receipt    ReceiptInfo
	order      *template.Template
	slip       *template.Template
}

// NewFormatter returns a Formatter for the given currency symbol and BCP 47
// locale. An unparseable locale falls back to English.
func NewFormatter(currency, locale string, minorUnits int32, receipt ReceiptInfo) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	if currency == "" {
		currency = DefaultCurrencySymbol
	}
	if minorUnits < 0 {
		minorUnits = 0
	}
	f := &Formatter{
		currency:   currency,
		minorUnits: minorUnits,
		printer:    message.NewPrinter(tag),
		receipt:    receipt,
	}
	f.point = decimalPoint(f.printer)
	funcs := template.FuncMap{
		"amount":    f.Amount,
		"lineTotal": func(l types.CartLine) string { return f.Amount(l.Subtotal()) },
		"when":      func(t time.Time) string { return t.Format(timestampLayout) },
		"delivery":  deliveryLabel,
		"pad":       pad,
		"rule":      func() string { return strings.Repeat("-", receiptWidth) },
		"center":    center,
	}
	f.order = template.Must(template.New("order").Funcs(funcs).Parse(orderTemplate))
	f.slip = template.Must(template.New("receipt").Funcs(funcs).Parse(receiptTemplate))
	return f
}

// Amount formats d with the currency symbol, locale digit grouping and a
// fixed number of minor-unit places. The digits are taken from the decimal
// text, so amounts beyond float64 precision print exactly.
func (f *Formatter) Amount(d decimal.Decimal) string {
	fixed := d.Round(f.minorUnits).StringFixed(f.minorUnits)
	sign := ""
	if rest, ok := strings.CutPrefix(fixed, "-"); ok {
		sign, fixed = "-", rest
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	out := f.currency + " " + sign + f.group(whole)
	if frac != "" {
		out += f.point + frac
	}
	return out
}

// group applies the locale's digit grouping to a run of integer digits.
// Values past int64 keep their plain digits.
func (f *Formatter) group(digits string) string {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return digits
	}
	return f.printer.Sprint(number.Decimal(n))
}

// decimalPoint returns the locale's decimal separator, "." when it cannot
// be read back from the printer.
func decimalPoint(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	sep := strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
	if sep == "" || sep == s {
		return "."
	}
	return sep
}

const orderTemplate = `New order {{.Order.ID}}
Placed: {{when .Order.PlacedAt}}
{{with .Order.Customer}}
Name: {{.Name}}
Phone: {{.Phone}}
Address: {{.Address}}
Delivery: {{delivery .Delivery}}
{{- if .Notes}}
Notes: {{.Notes}}
{{- end}}
{{end}}
Items:
{{range .Order.Lines}}- {{.Title}} x {{.Quantity}} @ {{amount .UnitPrice}} = {{lineTotal .}}
{{end}}
Subtotal: {{amount .Order.Pricing.Subtotal}}
Delivery: {{if .Order.Pricing.DeliveryCharge.IsZero}}Free{{else}}{{amount .Order.Pricing.DeliveryCharge}}{{end}}
Total: {{amount .Order.Pricing.Total}}`

// MessageText renders o as the plain-text order summary sent over chat.
func (f *Formatter) MessageText(o Order) (string, error) {
	var buf bytes.Buffer
	if err := f.order.Execute(&buf, struct{ Order Order }{o}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const receiptTemplate = `{{center .Info.StoreName}}
{{- if .Info.StoreAddress}}
{{center .Info.StoreAddress}}
{{- end}}
{{rule}}
Receipt: {{.Order.ID}}
Date: {{when .Order.PlacedAt}}
Delivery: {{delivery .Order.Pricing.Delivery}}
{{rule}}
{{range .Order.Lines}}{{.Title}}
{{pad (printf "  %d x %s" .Quantity (amount .UnitPrice)) (lineTotal .)}}
{{end}}{{rule}}
{{pad "Subtotal" (amount .Order.Pricing.Subtotal)}}
{{pad "Delivery" (amount .Order.Pricing.DeliveryCharge)}}
{{- if .Order.Pricing.TaxApplied}}
{{pad "Tax" (amount .Order.Pricing.Tax)}}
{{- end}}
{{pad "Total" (amount .Order.Pricing.Total)}}
{{rule}}
{{- if .Info.Footer}}
{{center .Info.Footer}}
{{- end}}
`

// Receipt renders o as a fixed-width printable receipt.
func (f *Formatter) Receipt(o Order) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Info  ReceiptInfo
		Order Order
	}{f.receipt, o}
	if err := f.slip.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MessageLink builds the chat deep link <base><phone>?text=<order>. Only the
// digits of phone are kept and spaces in the text encode as %20.
func MessageLink(base, phone, text string) string {
	if base == "" {
		base = DefaultLinkBase
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return base + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func deliveryLabel(option string) string {
	switch option {
	case types.DeliveryPickup:
		return "Store pickup"
	default:
		return "Home delivery"
	}
}

// pad right-aligns value after label on a receiptWidth line.
func pad(label, value string) string {
	gap := receiptWidth - len([]rune(label)) - len([]rune(value))
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

func center(s string) string {
	n := len([]rune(s))
	if n >= receiptWidth {
		return s
	}
	return strings.Repeat(" ", (receiptWidth-n)/2) + s
}
