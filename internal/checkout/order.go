package checkout

import (
	"crypto/rand"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// Checkout methods recorded on an Order.
const (
	MethodMessage = "message"
	MethodReceipt = "receipt"
)

// DefaultOrderIDPrefix is prepended to generated order ids.
const DefaultOrderIDPrefix = "ORD-"

// Customer is the contact block of a message order.
type Customer struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Notes    string `json:"notes,omitempty"`
	Delivery string `json:"delivery"`
}

// Order is the payload produced by a completed checkout branch.
type Order struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Method    string                 `json:"method"`
	Customer  *Customer              `json:"customer,omitempty"`
	Lines     []types.CartLine       `json:"lines"`
	Pricing   types.PricingBreakdown `json:"pricing"`
	PlacedAt  time.Time              `json:"placed_at"`
}

// NewOrderIDs returns a generator of prefix+ULID order ids. Ids from one
// generator sort by creation time and never repeat within the process, even
// within the same millisecond.
func NewOrderIDs(prefix string, clock func() time.Time) func() string {
	if clock == nil {
		clock = time.Now
	}
	var (
		mu      sync.Mutex
		entropy = ulid.Monotonic(rand.Reader, 0)
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return prefix + ulid.MustNew(ulid.Timestamp(clock()), entropy).String()
	}
}

var strictPolicy = bluemonday.StrictPolicy()

// sanitize strips markup and surrounding space from customer text.
// StrictPolicy escapes what it keeps, so the result is unescaped back to
// plain text.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// normalize sanitizes every field and defaults the delivery option to home.
func (c Customer) normalize() Customer {
	out := Customer{
		Name:     sanitize(c.Name),
		Phone:    sanitize(c.Phone),
		Address:  sanitize(c.Address),
		Notes:    sanitize(c.Notes),
		Delivery: strings.ToLower(strings.TrimSpace(c.Delivery)),
	}
	if out.Delivery == "" {
		out.Delivery = types.DeliveryHome
	}
	return out
}

// validate returns ErrMissingField naming every required field that is empty.
func (c Customer) validate() error {
	var missing []string
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.Phone == "" {
		missing = append(missing, "phone")
	}
	if c.Address == "" {
		missing = append(missing, "address")
	}
	if !types.ValidDelivery(c.Delivery) {
		missing = append(missing, "delivery")
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

// MissingFieldError lists the customer fields that failed validation.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", types.ErrMissingField, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Unwrap() error { return types.ErrMissingField }
