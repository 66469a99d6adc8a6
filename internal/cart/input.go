package cart

import (
	"sync"
	"time"
)

// DefaultDebounce is the delay used when NewQuantityInput gets zero.
const DefaultDebounce = 400 * time.Millisecond

// Timer is the handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// pendingInput is the single scheduled staging call for one product.
type pendingInput struct {
	timer Timer
	apply func()
}

// QuantityInput coalesces rapid quantity input into one staging call per
// product. Each product has a single timer slot: new input cancels the
// scheduled call before rescheduling, so the last input wins. Blur runs the
// scheduled call immediately.
type QuantityInput struct {
	mu      sync.Mutex
	staging *Staging
	delay   time.Duration
	after   AfterFunc
	slots   map[string]*pendingInput
}

// NewQuantityInput returns an input debouncer over staging. A zero delay
// means DefaultDebounce; a nil after uses the system timer.
func NewQuantityInput(staging *Staging, delay time.Duration, after AfterFunc) *QuantityInput {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if after == nil {
		after = systemAfterFunc
	}
	return &QuantityInput{
		staging: staging,
		delay:   delay,
		after:   after,
		slots:   make(map[string]*pendingInput),
	}
}

// Input schedules change for productID, replacing any scheduled input.
func (q *QuantityInput) Input(productID string, change Change) {
	q.schedule(productID, func() { q.staging.Stage(productID, change) })
}

// InputText schedules typed text for productID, replacing any scheduled
// input. The text is parsed when the call runs.
func (q *QuantityInput) InputText(productID, text string) {
	q.schedule(productID, func() { q.staging.StageText(productID, text) })
}

func (q *QuantityInput) schedule(productID string, apply func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if prev, ok := q.slots[productID]; ok {
		prev.timer.Stop()
	}
	p := &pendingInput{apply: apply}
	q.slots[productID] = p
	p.timer = q.after(q.delay, func() { q.fire(productID, p) })
}

// fire runs p if it is still the scheduled input for productID. A timer
// that was stopped too late to prevent its callback finds itself replaced
// and does nothing.
func (q *QuantityInput) fire(productID string, p *pendingInput) {
	q.mu.Lock()
	if q.slots[productID] != p {
		q.mu.Unlock()
		return
	}
	delete(q.slots, productID)
	q.mu.Unlock()

	p.apply()
}

// Blur runs the scheduled input for productID now, without waiting for the
// timer. It does nothing when no input is scheduled.
func (q *QuantityInput) Blur(productID string) {
	q.mu.Lock()
	p, ok := q.slots[productID]
	if ok {
		p.timer.Stop()
		delete(q.slots, productID)
	}
	q.mu.Unlock()

	if ok {
		p.apply()
	}
}

// Flush runs every scheduled input now.
func (q *QuantityInput) Flush() {
	q.mu.Lock()
	scheduled := make([]*pendingInput, 0, len(q.slots))
	for id, p := range q.slots {
		p.timer.Stop()
		scheduled = append(scheduled, p)
		delete(q.slots, id)
	}
	q.mu.Unlock()

	for _, p := range scheduled {
		p.apply()
	}
}

// Scheduled reports whether input for productID is waiting on its timer.
func (q *QuantityInput) Scheduled(productID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.slots[productID]
	return ok
}

// Cancel drops the scheduled input for productID without running it.
func (q *QuantityInput) Cancel(productID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if p, ok := q.slots[productID]; ok {
		p.timer.Stop()
		delete(q.slots, productID)
	}
}

// Stop cancels every scheduled input without running it.
func (q *QuantityInput) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, p := range q.slots {
		p.timer.Stop()
		delete(q.slots, id)
	}
}
