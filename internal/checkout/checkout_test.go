package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/storefront/internal/cart"
	"github.com/mesh-intelligence/storefront/internal/catalog"
	"github.com/mesh-intelligence/storefront/internal/notify"
	"github.com/mesh-intelligence/storefront/internal/storage"
	"github.com/mesh-intelligence/storefront/pkg/types"
)

func intPtr(v int) *int { return &v }

type recordingOpener struct {
	urls []string
	err  error
}

func (o *recordingOpener) Open(u string) error {
	o.urls = append(o.urls, u)
	return o.err
}

type recordingPrinter struct {
	printed []string
	err     error
}

func (p *recordingPrinter) Print(content string) error {
	p.printed = append(p.printed, content)
	return p.err
}

type fixture struct {
	flow    *Flow
	store   *cart.Store
	staging *cart.Staging
	opener  *recordingOpener
	printer *recordingPrinter
	notes   *notify.Recorder
	logs    *observer.ObservedLogs
}

var placedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testPricing() types.PricingConfig {
	return types.PricingConfig{
		FreeDeliveryAbove: decimal.NewFromInt(1000),
		DeliveryCharge:    decimal.NewFromInt(50),
		TaxRate:           decimal.RequireFromString("0.18"),
		MinorUnits:        2,
	}
}

func newFixture(t *testing.T, policy ClearPolicy) *fixture {
	t.Helper()
	cat, err := catalog.NewStatic([]types.Product{
		{ID: "mug", Title: "Mug", Price: decimal.NewFromInt(100), Stock: intPtr(3)},
		{ID: "desk", Title: "Desk", Price: decimal.NewFromInt(1200)},
	})
	require.NoError(t, err)

	f := &fixture{
		opener:  &recordingOpener{},
		printer: &recordingPrinter{},
		notes:   &notify.Recorder{},
	}
	core, logs := observer.New(zap.DebugLevel)
	f.logs = logs

	f.store, err = cart.New(cart.Deps{
		Catalog:   cat,
		Storage:   storage.NewMemory(),
		Confirmer: types.AlwaysConfirm,
	})
	require.NoError(t, err)
	f.staging = cart.NewStaging(f.store)

	n := 0
	f.flow, err = New(Deps{
		Staging: f.staging,
		Formatter: NewFormatter("Rs.", "en", 2, ReceiptInfo{
			StoreName: "Corner Shop", StoreAddress: "1 Main Road", Footer: "Thank you!",
		}),
		Opener:   f.opener,
		Printer:  f.printer,
		Notifier: f.notes,
		Logger:   zap.New(core),
		Config: Config{
			Pricing:    testPricing(),
			LinkBase:   "https://wa.me/",
			Phone:      "+91 98765 43210",
			ClearAfter: policy,
		},
		Clock: func() time.Time { return placedAt },
		NewOrderID: func() string {
			n++
			return fmt.Sprintf("ORD-%04d", n)
		},
		NewSessionID: func() string { return "session-1" },
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) add(t *testing.T, id string, qty int) {
	t.Helper()
	_, err := f.store.AddLine(id, qty)
	require.NoError(t, err)
	f.notes.Reset()
}

func validCustomer() Customer {
	return Customer{Name: "Asha", Phone: "98765 43210", Address: "12 Lake View"}
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, errStagingRequired)
}

func TestStart_Guards(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t, ClearNever)
		err := f.flow.Start()
		assert.ErrorIs(t, err, types.ErrEmptyCart)
		assert.Equal(t, Idle, f.flow.Mode())
		assert.Equal(t, 1, f.notes.Count(types.SeverityError))
	})

	t.Run("unsaved edits", func(t *testing.T) {
		f := newFixture(t, ClearNever)
		f.add(t, "mug", 1)
		_, err := f.staging.Stage("mug", cart.By(1))
		require.NoError(t, err)
		f.notes.Reset()

		err = f.flow.Start()
		assert.ErrorIs(t, err, types.ErrUnsavedEdits)
		assert.Equal(t, Idle, f.flow.Mode())
		assert.Equal(t, 1, f.notes.Count(types.SeverityWarning))

		require.NoError(t, f.staging.Commit("mug"))
		require.NoError(t, f.flow.Start())
		assert.Equal(t, MethodSelect, f.flow.Mode())
	})
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t, ClearNever)
	f.add(t, "mug", 1)

	assert.ErrorIs(t, f.flow.ChooseMessage(), types.ErrInvalidTransition)
	_, err := f.flow.ChooseReceipt(types.DeliveryHome)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
	_, err = f.flow.Submit(validCustomer())
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
	assert.ErrorIs(t, f.flow.Print(), types.ErrInvalidTransition)
	assert.ErrorIs(t, f.flow.Back(), types.ErrInvalidTransition)

	require.NoError(t, f.flow.Start())
	assert.ErrorIs(t, f.flow.Start(), types.ErrInvalidTransition)
	assert.ErrorIs(t, f.flow.Print(), types.ErrInvalidTransition)
	assert.Equal(t, MethodSelect, f.flow.Mode())
	assert.Empty(t, f.notes.Entries(), "transition errors are not reported")
}

func TestMessageBranch(t *testing.T) {
	f := newFixture(t, ClearNever)
	f.add(t, "mug", 2)

	require.NoError(t, f.flow.Start())
	require.NoError(t, f.flow.ChooseMessage())
	assert.Equal(t, MessageForm, f.flow.Mode())

	order, err := f.flow.Submit(Customer{
		Name:    "  Asha <b>K</b> ",
		Phone:   "98765 43210",
		Address: "12 Lake View",
		Notes:   "Ring twice",
	})
	require.NoError(t, err)

	assert.Equal(t, Idle, f.flow.Mode())
	assert.Equal(t, "ORD-0001", order.ID)
	assert.Equal(t, "session-1", order.SessionID)
	assert.Equal(t, MethodMessage, order.Method)
	require.NotNil(t, order.Customer)
	assert.Equal(t, "Asha K", order.Customer.Name)
	assert.Equal(t, types.DeliveryHome, order.Customer.Delivery)

	assert.False(t, order.Pricing.TaxApplied, "message orders never include tax")
	assert.True(t, order.Pricing.Tax.IsZero())
	assert.True(t, decimal.NewFromInt(50).Equal(order.Pricing.DeliveryCharge))
	assert.True(t, decimal.NewFromInt(250).Equal(order.Pricing.Total))

	require.Len(t, f.opener.urls, 1)
	link := f.opener.urls[0]
	assert.True(t, strings.HasPrefix(link, "https://wa.me/919876543210?text="), link)
	assert.NotContains(t, link, "+")

	u, err := url.Parse(link)
	require.NoError(t, err)
	text := u.Query().Get("text")
	assert.Contains(t, text, "New order ORD-0001")
	assert.Contains(t, text, "Name: Asha K")
	assert.Contains(t, text, "Notes: Ring twice")
	assert.Contains(t, text, "- Mug x 2 @ Rs. 100.00 = Rs. 200.00")
	assert.Contains(t, text, "Delivery: Rs. 50.00")
	assert.Contains(t, text, "Total: Rs. 250.00")
	assert.NotContains(t, text, "Tax")

	assert.Equal(t, 1, f.notes.Count(types.SeveritySuccess))
	assert.Equal(t, 1, f.store.LineCount(), "default policy keeps the cart")
	assert.Equal(t, 1, f.logs.FilterMessage("message order sent").FilterField(zap.String("session_id", "session-1")).Len())
}

func TestSubmit_MissingFields(t *testing.T) {
	tests := []struct {
		name     string
		customer Customer
		missing  []string
	}{
		{name: "all empty", customer: Customer{}, missing: []string{"name", "phone", "address"}},
		{name: "whitespace only", customer: Customer{Name: "  ", Phone: "1", Address: "\t"}, missing: []string{"name", "address"}},
		{name: "markup only", customer: Customer{Name: "<i></i>", Phone: "1", Address: "x"}, missing: []string{"name"}},
		{name: "bad delivery", customer: Customer{Name: "a", Phone: "1", Address: "x", Delivery: "drone"}, missing: []string{"delivery"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, ClearNever)
			f.add(t, "mug", 1)
			require.NoError(t, f.flow.Start())
			require.NoError(t, f.flow.ChooseMessage())

			_, err := f.flow.Submit(tt.customer)
			require.ErrorIs(t, err, types.ErrMissingField)
			var mf *MissingFieldError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, tt.missing, mf.Fields)

			assert.Equal(t, MessageForm, f.flow.Mode())
			assert.Empty(t, f.opener.urls)
			entries := f.notes.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, types.SeverityWarning, entries[0].Severity)
		})
	}
}

func TestSubmit_OpenerFailure(t *testing.T) {
	f := newFixture(t, ClearAlways)
	f.opener.err = errors.New("no browser")
	f.add(t, "mug", 1)
	require.NoError(t, f.flow.Start())
	require.NoError(t, f.flow.ChooseMessage())

	_, err := f.flow.Submit(validCustomer())
	require.Error(t, err)
	assert.Equal(t, MessageForm, f.flow.Mode())
	assert.Equal(t, 1, f.store.LineCount(), "failed submit never clears")
	assert.Equal(t, 1, f.notes.Count(types.SeverityError))
}

func TestReceiptBranch(t *testing.T) {
	f := newFixture(t, ClearNever)
	f.add(t, "desk", 1)

	require.NoError(t, f.flow.Start())
	order, err := f.flow.ChooseReceipt(types.DeliveryHome)
	require.NoError(t, err)
	assert.Equal(t, ReceiptView, f.flow.Mode())

	p := order.Pricing
	assert.True(t, p.TaxApplied)
	assert.True(t, decimal.NewFromInt(1200).Equal(p.Subtotal))
	assert.True(t, p.DeliveryCharge.IsZero(), "free delivery at or above the threshold")
	assert.True(t, decimal.NewFromInt(216).Equal(p.Tax), "tax %s", p.Tax)
	assert.True(t, decimal.NewFromInt(1416).Equal(p.Total), "total %s", p.Total)

	content, ok := f.flow.Receipt()
	require.True(t, ok)
	assert.Contains(t, content, "Corner Shop")
	assert.Contains(t, content, "Receipt: ORD-0001")
	assert.Contains(t, content, "Date: 2026-03-14 09:30 UTC")
	assert.Contains(t, content, "Desk")
	assert.Contains(t, content, "Rs. 216.00")
	assert.Contains(t, content, "Rs. 1,416.00")
	assert.Contains(t, content, "Thank you!")
	assert.Empty(t, f.opener.urls)

	require.NoError(t, f.flow.Print())
	require.Len(t, f.printer.printed, 1)
	assert.Equal(t, content, f.printer.printed[0], "only the receipt is printed")
	assert.Equal(t, ReceiptView, f.flow.Mode())
	assert.Equal(t, 1, f.store.LineCount(), "receipt never mutates the cart by default")
}

func TestReceiptBranch_Pickup(t *testing.T) {
	f := newFixture(t, ClearNever)
	f.add(t, "mug", 1)
	require.NoError(t, f.flow.Start())

	order, err := f.flow.ChooseReceipt("pickup")
	require.NoError(t, err)
	assert.True(t, order.Pricing.DeliveryCharge.IsZero())
	assert.True(t, decimal.NewFromInt(18).Equal(order.Pricing.Tax))
	assert.True(t, decimal.NewFromInt(118).Equal(order.Pricing.Total))

	content, _ := f.flow.Receipt()
	assert.Contains(t, content, "Delivery: Store pickup")
}

func TestChooseReceipt_UnknownDelivery(t *testing.T) {
	f := newFixture(t, ClearNever)
	f.add(t, "mug", 1)
	require.NoError(t, f.flow.Start())

	_, err := f.flow.ChooseReceipt("teleport")
	assert.ErrorIs(t, err, types.ErrMissingField)
	assert.Equal(t, MethodSelect, f.flow.Mode())
}

func TestPrint_Failure(t *testing.T) {
	f := newFixture(t, ClearReceipt)
	f.printer.err = errors.New("offline")
	f.add(t, "mug", 1)
	require.NoError(t, f.flow.Start())
	_, err := f.flow.ChooseReceipt("")
	require.NoError(t, err)

	assert.Error(t, f.flow.Print())
	assert.Equal(t, 1, f.store.LineCount())
	assert.Equal(t, 1, f.notes.Count(types.SeverityError))
}

func TestBackAndClose(t *testing.T) {
	f := newFixture(t, ClearNever)
	f.add(t, "mug", 1)

	require.NoError(t, f.flow.Start())
	_, err := f.flow.ChooseReceipt(types.DeliveryHome)
	require.NoError(t, err)

	require.NoError(t, f.flow.Back())
	assert.Equal(t, MethodSelect, f.flow.Mode())
	_, ok := f.flow.Receipt()
	assert.False(t, ok)
	s, ok := f.flow.Session()
	require.True(t, ok)
	assert.Nil(t, s.Order, "session data discarded")

	require.NoError(t, f.flow.ChooseMessage())
	require.NoError(t, f.flow.Back())
	require.NoError(t, f.flow.Back())
	assert.Equal(t, Idle, f.flow.Mode())
	_, ok = f.flow.Session()
	assert.False(t, ok)

	require.NoError(t, f.flow.Start())
	require.NoError(t, f.flow.ChooseMessage())
	f.flow.Close()
	assert.Equal(t, Idle, f.flow.Mode())
	assert.Equal(t, 1, f.store.LineCount(), "leaving checkout never touches the cart")
}

func TestClearPolicy(t *testing.T) {
	tests := []struct {
		policy       ClearPolicy
		afterMessage int
		afterReceipt int
	}{
		{policy: ClearNever, afterMessage: 1, afterReceipt: 1},
		{policy: ClearMessage, afterMessage: 0, afterReceipt: 1},
		{policy: ClearReceipt, afterMessage: 1, afterReceipt: 0},
		{policy: ClearAlways, afterMessage: 0, afterReceipt: 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			f := newFixture(t, tt.policy)
			f.add(t, "mug", 1)
			require.NoError(t, f.flow.Start())
			require.NoError(t, f.flow.ChooseMessage())
			_, err := f.flow.Submit(validCustomer())
			require.NoError(t, err)
			assert.Equal(t, tt.afterMessage, f.store.LineCount())

			f2 := newFixture(t, tt.policy)
			f2.add(t, "mug", 1)
			require.NoError(t, f2.flow.Start())
			_, err = f2.flow.ChooseReceipt(types.DeliveryHome)
			require.NoError(t, err)
			assert.Equal(t, 1, f2.store.LineCount(), "rendering alone never clears")
			require.NoError(t, f2.flow.Print())
			assert.Equal(t, tt.afterReceipt, f2.store.LineCount())
		})
	}
}

func TestParseClearPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ClearPolicy
		wantErr bool
	}{
		{in: "", want: ClearNever},
		{in: "never", want: ClearNever},
		{in: "Message", want: ClearMessage},
		{in: " receipt ", want: ClearReceipt},
		{in: "always", want: ClearAlways},
		{in: "sometimes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClearPolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownClearPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultSessionIDIsUUIDv7(t *testing.T) {
	id := newSessionID()
	assert.Len(t, id, 36)
	assert.Equal(t, byte('7'), id[14], "version nibble")
}

func TestCallbacksMayReadTheFlow(t *testing.T) {
	cat, err := catalog.NewStatic([]types.Product{
		{ID: "mug", Title: "Mug", Price: decimal.NewFromInt(100), Stock: intPtr(3)},
	})
	require.NoError(t, err)

	var (
		flow       *Flow
		store      *cart.Store
		noteModes  []Mode
		cartModes  []Mode
		cartCounts []int
	)
	store, err = cart.New(cart.Deps{
		Catalog:   cat,
		Storage:   storage.NewMemory(),
		Confirmer: types.AlwaysConfirm,
		OnUpdate: func([]types.CartLine, decimal.Decimal, int) {
			if flow != nil {
				cartModes = append(cartModes, flow.Mode())
				cartCounts = append(cartCounts, store.LineCount())
			}
		},
	})
	require.NoError(t, err)
	_, err = store.AddLine("mug", 1)
	require.NoError(t, err)

	flow, err = New(Deps{
		Staging:  cart.NewStaging(store),
		Opener:   &recordingOpener{},
		Printer:  &recordingPrinter{},
		Notifier: types.NotifierFunc(func(types.Severity, string) { noteModes = append(noteModes, flow.Mode()) }),
		Config: Config{
			Pricing:    testPricing(),
			LinkBase:   "https://wa.me/",
			Phone:      "98765",
			ClearAfter: ClearAlways,
		},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		if err := flow.Start(); err != nil {
			done <- err
			return
		}
		if err := flow.ChooseMessage(); err != nil {
			done <- err
			return
		}
		flow.Submit(Customer{Name: "Asha"})
		_, err := flow.Submit(validCustomer())
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("a callback reading the flow blocked checkout")
	}

	assert.Equal(t, []Mode{MessageForm, Idle}, noteModes)
	assert.Equal(t, []Mode{Idle}, cartModes)
	assert.Equal(t, []int{0}, cartCounts)
}
