package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storefront/internal/cart"
	"github.com/mesh-intelligence/storefront/internal/catalog"
	"github.com/mesh-intelligence/storefront/internal/checkout"
	"github.com/mesh-intelligence/storefront/internal/logging"
	"github.com/mesh-intelligence/storefront/internal/notify"
	"github.com/mesh-intelligence/storefront/internal/storage"
	"github.com/mesh-intelligence/storefront/pkg/types"
)

// app is the wired engine behind one CLI invocation.
type app struct {
	settings  *settings
	logger    *zap.Logger
	storage   types.Storage
	catalog   *catalog.File
	store     *cart.Store
	staging   *cart.Staging
	input     *cart.QuantityInput
	flow      *checkout.Flow
	formatter *checkout.Formatter
	opener    *linkPrinter
	printer   *receiptPrinter

	out    io.Writer
	errOut io.Writer
	lines  *lineReader
	json   bool
}

// hooks are the optional render callbacks of an app.
type hooks struct {
	onUpdate  func(a *app) types.UpdateFunc
	onPreview func(a *app) types.PreviewFunc
}

// openApp loads settings and wires storage, catalog, cart and checkout.
// The caller must call Close.
func openApp(cmd *cobra.Command, opts *rootOptions, h hooks) (*app, error) {
	s, err := loadSettings(opts)
	if err != nil {
		return nil, sysErr("load config: %w", err)
	}

	logger, err := logging.New(s.LogLevel, s.LogFormat)
	if err != nil {
		return nil, sysErr("create logger: %w", err)
	}

	a := &app{
		settings: s,
		logger:   logger,
		lines:    newLineReader(cmd.InOrStdin()),
		json:     opts.jsonMode,
	}
	a.out, a.errOut = lockedPair(cmd.OutOrStdout(), cmd.ErrOrStderr())

	a.catalog, err = catalog.OpenFile(s.CatalogPath, logger)
	if err != nil {
		return nil, sysErr("open catalog: %w", err)
	}

	a.storage, err = storage.Open(s.Storage)
	if err != nil {
		return nil, sysErr("open storage: %w", err)
	}

	var confirmer types.Confirmer = types.AlwaysConfirm
	if !opts.yes {
		confirmer = &promptConfirmer{lines: a.lines, out: a.errOut}
	}

	// Notifications are shopper-facing output; JSON mode keeps stdout clean.
	noteOut := a.out
	if a.json {
		noteOut = a.errOut
	}
	deps := cart.Deps{
		Catalog:   a.catalog,
		Storage:   a.storage,
		Notifier:  notify.Multi(notify.Writer(noteOut), notify.Log(logger)),
		Confirmer: confirmer,
		Logger:    logger,
		Key:       s.CartKey,
	}
	if h.onUpdate != nil {
		deps.OnUpdate = h.onUpdate(a)
	}
	if h.onPreview != nil {
		deps.OnPreview = h.onPreview(a)
	}
	a.store, err = cart.New(deps)
	if err != nil {
		a.storage.Close()
		return nil, sysErr("open cart: %w", err)
	}
	a.staging = cart.NewStaging(a.store)
	a.input = cart.NewQuantityInput(a.staging, s.Debounce, nil)

	a.formatter = checkout.NewFormatter(s.Currency, s.Locale, s.Pricing.MinorUnits, s.Receipt)
	a.opener = &linkPrinter{w: a.out, quiet: opts.jsonMode}
	a.printer = &receiptPrinter{w: a.out}
	a.flow, err = checkout.New(checkout.Deps{
		Staging:    a.staging,
		Formatter:  a.formatter,
		Opener:     a.opener,
		Printer:    a.printer,
		Notifier:   deps.Notifier,
		Logger:     logger,
		Config:     s.Checkout,
		NewOrderID: checkout.NewOrderIDs(s.OrderPrefix, nil),
	})
	if err != nil {
		a.storage.Close()
		return nil, sysErr("open checkout: %w", err)
	}

	logger.Debug("storefront ready",
		zap.String("backend", s.Storage.Backend), zap.String("data_dir", s.Storage.DataDir),
		zap.String("catalog", s.CatalogPath), zap.Int("lines", a.store.LineCount()))
	return a, nil
}

// Close stops pending input timers and releases storage.
func (a *app) Close() error {
	a.input.Stop()
	_ = a.logger.Sync()
	if err := a.storage.Close(); err != nil {
		return sysErr("close storage: %w", err)
	}
	return nil
}

// lineReader reads newline-terminated input shared by the shell and
// confirmation prompts.
type lineReader struct {
	scanner *bufio.Scanner
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{scanner: bufio.NewScanner(r)}
}

// next returns the next line without its terminator; false at end of input.
func (l *lineReader) next() (string, bool) {
	if !l.scanner.Scan() {
		return "", false
	}
	return strings.TrimRight(l.scanner.Text(), "\r"), true
}

// promptConfirmer asks on out and reads the answer from lines. Anything but
// y or yes declines, including end of input.
type promptConfirmer struct {
	lines *lineReader
	out   io.Writer
}

func (p *promptConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	answer, ok := p.lines.next()
	if !ok {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// linkPrinter is the CLI's link opener: it prints the URL for the shopper
// to follow.
type linkPrinter struct {
	w     io.Writer
	quiet bool
	last  string
}

func (p *linkPrinter) Open(url string) error {
	p.last = url
	if p.quiet {
		return nil
	}
	_, err := fmt.Fprintf(p.w, "Open this link to send your order:\n%s\n", url)
	return err
}

// receiptPrinter writes receipts to a file when path is set and to w
// otherwise.
type receiptPrinter struct {
	w    io.Writer
	path string
}

func (p *receiptPrinter) Print(content string) error {
	if p.path == "" {
		_, err := io.WriteString(p.w, content)
		return err
	}
	return os.WriteFile(p.path, []byte(content), 0o644)
}
