// Package checkout implements the checkout state machine.
//
// A Flow moves Idle -> MethodSelect -> {MessageForm | ReceiptView} -> Idle.
// The message branch prices the cart without tax and hands a chat deep link
// to the host; the receipt branch prices with tax and renders a printable
// receipt. Neither branch mutates the cart unless the clear policy says so.
package checkout

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storefront/internal/cart"
	"github.com/mesh-intelligence/storefront/internal/pricing"
	"github.com/mesh-intelligence/storefront/pkg/types"
)

// Mode is the state of a checkout session.
type Mode int

const (
	Idle Mode = iota
	MethodSelect
	MessageForm
	ReceiptView
)

func (m Mode) String() string {
	switch m {
	case MethodSelect:
		return "method_select"
	case MessageForm:
		return "message_form"
	case ReceiptView:
		return "receipt_view"
	default:
		return "idle"
	}
}

// ClearPolicy selects which completed checkout branch empties the cart.
type ClearPolicy string

const (
	ClearNever   ClearPolicy = "never"
	ClearMessage ClearPolicy = "message"
	ClearReceipt ClearPolicy = "receipt"
	ClearAlways  ClearPolicy = "always"
)

// ErrUnknownClearPolicy is returned by ParseClearPolicy.
var ErrUnknownClearPolicy = errors.New("unknown clear policy")

// ParseClearPolicy reads a policy name. Empty means ClearNever.
func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch p := ClearPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ClearNever, nil
	case ClearNever, ClearMessage, ClearReceipt, ClearAlways:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownClearPolicy, s)
	}
}

func (p ClearPolicy) clears(method string) bool {
	switch p {
	case ClearAlways:
		return true
	case ClearMessage:
		return method == MethodMessage
	case ClearReceipt:
		return method == MethodReceipt
	default:
		return false
	}
}

// Config holds the store-level checkout settings.
type Config struct {
	Pricing    types.PricingConfig
	LinkBase   string
	Phone      string
	ClearAfter ClearPolicy
}

// Deps wires the collaborators of a Flow.
type Deps struct {
	Staging   *cart.Staging
	Formatter *Formatter
	Opener    types.LinkOpener
	Printer   types.Printer
	Notifier  types.Notifier
	Logger    *zap.Logger
	Config    Config

	// Clock defaults to time.Now.
	Clock func() time.Time
	// NewOrderID defaults to NewOrderIDs(DefaultOrderIDPrefix, Clock).
	NewOrderID func() string
	// NewSessionID defaults to a UUID v7.
	NewSessionID func() string
}

// Session is the ephemeral state of one checkout.
type Session struct {
	ID      string
	Mode    Mode
	Order   *Order
	Receipt string
}

// Flow is the checkout state machine over one cart.
type Flow struct {
	mu        sync.Mutex
	staging   *cart.Staging
	store     *cart.Store
	formatter *Formatter
	opener    types.LinkOpener
	printer   types.Printer
	notifier  types.Notifier
	logger    *zap.Logger
	config    Config
	clock     func() time.Time
	orderID   func() string
	sessionID func() string

	session *Session
	effects []func()
}

var (
	errStagingRequired = errors.New("checkout: staging is required")
	errOpenerRequired  = errors.New("checkout: link opener is required")
	errPrinterRequired = errors.New("checkout: printer is required")
)

// New constructs an idle Flow.
func New(deps Deps) (*Flow, error) {
	if deps.Staging == nil {
		return nil, errStagingRequired
	}
	if deps.Opener == nil {
		return nil, errOpenerRequired
	}
	if deps.Printer == nil {
		return nil, errPrinterRequired
	}

	f := &Flow{
		staging:   deps.Staging,
		store:     deps.Staging.Store(),
		formatter: deps.Formatter,
		opener:    deps.Opener,
		printer:   deps.Printer,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		config:    deps.Config,
		clock:     deps.Clock,
		orderID:   deps.NewOrderID,
		sessionID: deps.NewSessionID,
	}
	if f.formatter == nil {
		f.formatter = NewFormatter(DefaultCurrencySymbol, "en", deps.Config.Pricing.MinorUnits, ReceiptInfo{})
	}
	if f.notifier == nil {
		f.notifier = types.NotifierFunc(func(types.Severity, string) {})
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	f.logger = f.logger.Named("checkout")
	if f.clock == nil {
		f.clock = time.Now
	}
	if f.orderID == nil {
		f.orderID = NewOrderIDs(DefaultOrderIDPrefix, f.clock)
	}
	if f.sessionID == nil {
		f.sessionID = newSessionID
	}
	if f.config.ClearAfter == "" {
		f.config.ClearAfter = ClearNever
	}
	return f, nil
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Mode returns the current state.
func (f *Flow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return Idle
	}
	return f.session.Mode
}

// Session returns a copy of the active session, if any.
func (f *Flow) Session() (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return Session{}, false
	}
	return *f.session, true
}

func (f *Flow) modeLocked() Mode {
	if f.session == nil {
		return Idle
	}
	return f.session.Mode
}

// transitionError is returned for calls made in the wrong state. It is not
// reported to the shopper.
func (f *Flow) transitionError(op string, want ...Mode) error {
	got := f.modeLocked()
	f.logger.Debug("rejected transition", zap.String("op", op), zap.Stringer("mode", got))
	names := make([]string, len(want))
	for i, m := range want {
		names[i] = m.String()
	}
	return fmt.Errorf("%s in %s (want %s): %w", op, got, strings.Join(names, " or "), types.ErrInvalidTransition)
}

// unlock releases f.mu and then runs the notifications and cart resets
// queued while it was held.
func (f *Flow) unlock() {
	effects := f.effects
	f.effects = nil
	f.mu.Unlock()
	for _, fn := range effects {
		fn()
	}
}

func (f *Flow) notify(severity types.Severity, message string) {
	f.effects = append(f.effects, func() { f.notifier.Notify(severity, message) })
}

func (f *Flow) report(err error, message string) error {
	f.notify(types.SeverityOf(err), message)
	return err
}

func (f *Flow) sessionLogger() *zap.Logger {
	if f.session == nil {
		return f.logger
	}
	return f.logger.With(zap.String("session_id", f.session.ID))
}

// Start opens a session in MethodSelect. It is refused with ErrEmptyCart
// when the cart has no lines and with ErrUnsavedEdits while any edit is
// pending.
func (f *Flow) Start() error {
	f.mu.Lock()
	defer f.unlock()

	if f.session != nil {
		return f.transitionError("start", Idle)
	}
	if f.store.LineCount() == 0 {
		return f.report(fmt.Errorf("start checkout: %w", types.ErrEmptyCart), "Your cart is empty")
	}
	if n := f.staging.PendingCount(); n > 0 {
		return f.report(fmt.Errorf("start checkout: %d pending: %w", n, types.ErrUnsavedEdits),
			"Save or discard your changes before checking out")
	}

	f.session = &Session{ID: f.sessionID(), Mode: MethodSelect}
	f.sessionLogger().Info("checkout started", zap.Int("lines", f.store.LineCount()))
	return nil
}

// ChooseMessage moves MethodSelect -> MessageForm.
func (f *Flow) ChooseMessage() error {
	f.mu.Lock()
	defer f.unlock()
	if f.modeLocked() != MethodSelect {
		return f.transitionError("choose message", MethodSelect)
	}
	f.session.Mode = MessageForm
	return nil
}

// Submit completes the message branch. Name, phone and address are
// required; a missing field keeps the form open and reports
// ErrMissingField. On success the order summary is priced without tax,
// handed to the link opener as a chat deep link and the session ends.
func (f *Flow) Submit(customer Customer) (Order, error) {
	f.mu.Lock()
	defer f.unlock()

	if f.modeLocked() != MessageForm {
		return Order{}, f.transitionError("submit", MessageForm)
	}

	c := customer.normalize()
	if err := c.validate(); err != nil {
		var mf *MissingFieldError
		errors.As(err, &mf)
		return Order{}, f.report(err, "Please fill in: "+strings.Join(mf.Fields, ", "))
	}

	order := f.newOrderLocked(MethodMessage, c.Delivery, types.TaxExcluded)
	order.Customer = &c

	text, err := f.formatter.MessageText(order)
	if err != nil {
		return Order{}, f.report(fmt.Errorf("format order %s: %w", order.ID, err), "Could not prepare the order message")
	}
	link := MessageLink(f.config.LinkBase, f.config.Phone, text)
	if err := f.opener.Open(link); err != nil {
		f.sessionLogger().Warn("opening order link failed", zap.String("order_id", order.ID), zap.Error(err))
		return Order{}, f.report(fmt.Errorf("open order link: %w", err), "Could not open the messaging app")
	}

	log := f.sessionLogger()
	f.notify(types.SeveritySuccess, fmt.Sprintf("Order %s sent", order.ID))
	f.session = nil
	f.clearAfterLocked(MethodMessage)
	log.Info("message order sent",
		zap.String("order_id", order.ID), zap.String("delivery", c.Delivery),
		zap.Stringer("total", order.Pricing.Total))
	return order, nil
}

// ChooseReceipt moves MethodSelect -> ReceiptView, pricing the cart with
// tax for the given delivery option and rendering the receipt.
func (f *Flow) ChooseReceipt(delivery string) (Order, error) {
	f.mu.Lock()
	defer f.unlock()

	if f.modeLocked() != MethodSelect {
		return Order{}, f.transitionError("choose receipt", MethodSelect)
	}
	delivery = strings.ToLower(strings.TrimSpace(delivery))
	if delivery == "" {
		delivery = types.DeliveryHome
	}
	if !types.ValidDelivery(delivery) {
		return Order{}, f.report(&MissingFieldError{Fields: []string{"delivery"}},
			fmt.Sprintf("Unknown delivery option %q", delivery))
	}

	order := f.newOrderLocked(MethodReceipt, delivery, types.TaxIncluded)
	content, err := f.formatter.Receipt(order)
	if err != nil {
		return Order{}, f.report(fmt.Errorf("render receipt %s: %w", order.ID, err), "Could not prepare the receipt")
	}

	f.session.Mode = ReceiptView
	f.session.Order = &order
	f.session.Receipt = content
	f.sessionLogger().Info("receipt rendered",
		zap.String("order_id", order.ID), zap.Stringer("total", order.Pricing.Total))
	return order, nil
}

// Receipt returns the rendered receipt while in ReceiptView.
func (f *Flow) Receipt() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modeLocked() != ReceiptView {
		return "", false
	}
	return f.session.Receipt, true
}

// Print hands the rendered receipt, and nothing else, to the printer. The
// session stays in ReceiptView.
func (f *Flow) Print() error {
	f.mu.Lock()
	defer f.unlock()

	if f.modeLocked() != ReceiptView {
		return f.transitionError("print", ReceiptView)
	}
	id := f.session.Order.ID
	if err := f.printer.Print(f.session.Receipt); err != nil {
		f.sessionLogger().Warn("printing receipt failed", zap.String("order_id", id), zap.Error(err))
		return f.report(fmt.Errorf("print receipt %s: %w", id, err), "Printing failed")
	}
	f.notify(types.SeveritySuccess, fmt.Sprintf("Receipt %s sent to printer", id))
	f.clearAfterLocked(MethodReceipt)
	f.sessionLogger().Info("receipt printed", zap.String("order_id", id))
	return nil
}

// Back moves one step toward Idle, discarding the data of the state it
// leaves. The cart is never touched.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.unlock()

	switch f.modeLocked() {
	case MessageForm, ReceiptView:
		f.session.Mode = MethodSelect
		f.session.Order = nil
		f.session.Receipt = ""
	case MethodSelect:
		f.sessionLogger().Debug("checkout abandoned")
		f.session = nil
	default:
		return f.transitionError("back", MethodSelect, MessageForm, ReceiptView)
	}
	return nil
}

// Close ends any session and returns to Idle.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.unlock()
	if f.session != nil {
		f.sessionLogger().Debug("checkout closed", zap.Stringer("mode", f.session.Mode))
	}
	f.session = nil
}

func (f *Flow) newOrderLocked(method, delivery string, policy types.TaxPolicy) Order {
	lines := f.store.Lines()
	return Order{
		ID:        f.orderID(),
		SessionID: f.session.ID,
		Method:    method,
		Lines:     lines,
		Pricing:   pricing.Compute(lines, f.config.Pricing, delivery, policy),
		PlacedAt:  f.clock(),
	}
}

func (f *Flow) clearAfterLocked(method string) {
	if f.config.ClearAfter.clears(method) {
		f.effects = append(f.effects, f.store.Reset)
		f.logger.Debug("cart cleared after checkout", zap.String("method", method))
	}
}
