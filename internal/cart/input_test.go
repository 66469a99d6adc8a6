package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityInput_DebounceLastWins(t *testing.T) {
	f := newFixture(t)
	timers := &fakeTimers{}
	in := NewQuantityInput(f.staging, time.Millisecond, timers.after)

	f.add(t, "p1", 1)
	assert.True(t, decimal.NewFromInt(100).Equal(f.store.Total()))

	in.Input("p1", By(1))
	in.Input("p1", By(1))
	assert.Equal(t, 1, timers.active(), "one timer slot per product")
	assert.True(t, in.Scheduled("p1"))

	timers.settle()
	assert.False(t, in.Scheduled("p1"))

	pending, ok := f.staging.Pending("p1")
	require.True(t, ok)
	assert.Equal(t, 2, pending)

	require.NoError(t, f.staging.Commit("p1"))
	line, _ := f.store.Line("p1")
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, decimal.NewFromInt(200).Equal(f.store.Total()))
}

func TestQuantityInput_SeparateSlotsPerProduct(t *testing.T) {
	f := newFixture(t)
	timers := &fakeTimers{}
	in := NewQuantityInput(f.staging, 0, timers.after)
	f.add(t, "p1", 1)
	f.add(t, "p3", 1)

	in.Input("p1", To(2))
	in.InputText("p3", "5")
	assert.Equal(t, 2, timers.active())

	timers.settle()
	p1, _ := f.staging.Pending("p1")
	p3, _ := f.staging.Pending("p3")
	assert.Equal(t, 2, p1)
	assert.Equal(t, 5, p3)
}

func TestQuantityInput_Blur(t *testing.T) {
	f := newFixture(t)
	timers := &fakeTimers{}
	in := NewQuantityInput(f.staging, time.Hour, timers.after)
	f.add(t, "p1", 1)

	in.InputText("p1", "3")
	_, ok := f.staging.Pending("p1")
	assert.False(t, ok, "nothing staged before the timer or blur")

	in.Blur("p1")
	pending, ok := f.staging.Pending("p1")
	require.True(t, ok)
	assert.Equal(t, 3, pending)
	assert.Equal(t, 0, timers.active())

	in.Blur("p1")
	timers.settle()
	pending, _ = f.staging.Pending("p1")
	assert.Equal(t, 3, pending)
}

func TestQuantityInput_FlushAndStop(t *testing.T) {
	f := newFixture(t)
	timers := &fakeTimers{}
	in := NewQuantityInput(f.staging, time.Hour, timers.after)
	f.add(t, "p1", 1)
	f.add(t, "p3", 1)

	in.Input("p1", By(1))
	in.Input("p3", By(2))
	in.Flush()
	assert.Equal(t, 2, f.staging.PendingCount())
	assert.Equal(t, 0, timers.active())

	in.Input("p3", By(1))
	in.Cancel("p3")
	assert.False(t, in.Scheduled("p3"))
	p3, _ := f.staging.Pending("p3")
	assert.Equal(t, 3, p3, "cancelled input never runs")

	in.Input("p1", By(1))
	in.Stop()
	assert.Equal(t, 0, timers.active())
	assert.False(t, in.Scheduled("p1"))
	pending, _ := f.staging.Pending("p1")
	assert.Equal(t, 2, pending, "stopped input never runs")
}

func TestQuantityInput_StaleCallbackIgnored(t *testing.T) {
	f := newFixture(t)
	timers := &fakeTimers{}
	in := NewQuantityInput(f.staging, time.Hour, timers.after)
	f.add(t, "p1", 1)

	in.Input("p1", To(3))
	stale := timers.timers[0]
	in.Input("p1", To(2))

	// A stopped timer whose callback was already in flight.
	stale.f()
	_, ok := f.staging.Pending("p1")
	assert.False(t, ok)

	timers.settle()
	pending, _ := f.staging.Pending("p1")
	assert.Equal(t, 2, pending)
}

func TestQuantityInput_SystemTimer(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p3", 1)

	fired := make(chan struct{}, 1)
	in := NewQuantityInput(f.staging, 5*time.Millisecond, func(d time.Duration, fn func()) Timer {
		return time.AfterFunc(d, func() {
			fn()
			fired <- struct{}{}
		})
	})

	in.Input("p3", By(4))
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced input never ran")
	}
	pending, ok := f.staging.Pending("p3")
	require.True(t, ok)
	assert.Equal(t, 5, pending)
}
