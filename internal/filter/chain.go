package filter

import (
	"sync"
	"sync/atomic"

	"github.com/charliek/eventlook/internal/domain"
)

// Chain owns an ordered list of stages, the accumulated events and the
// filtered view. The view is always the events matched by every active
// stage, in event order.
type Chain struct {
	mu      sync.Mutex
	filters []Filter
	events  []domain.EventItem
	view    []domain.EventItem
	onApply func(view []domain.EventItem)

	// muted suppresses stage change callbacks while the chain itself is
	// clearing or refreshing its stages; it applies once afterwards.
	muted atomic.Bool
}

// NewChain creates a chain with the given stages
func NewChain(filters ...Filter) *Chain {
	c := &Chain{}
	for _, f := range filters {
		c.add(f)
	}
	return c
}

// Add appends a stage and recomputes the view
func (c *Chain) Add(f Filter) {
	c.add(f)
	c.Apply()
}

func (c *Chain) add(f Filter) {
	c.mu.Lock()
	c.filters = append(c.filters, f)
	c.mu.Unlock()
	f.SetOnChange(c.changed)
}

// Filters returns the stages in order
func (c *Chain) Filters() []Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Filter(nil), c.filters...)
}

// OnApply registers fn to receive the view after every recompute. It is
// called without the chain's lock held and must not retain the slice.
func (c *Chain) OnApply(fn func(view []domain.EventItem)) {
	c.mu.Lock()
	c.onApply = fn
	c.mu.Unlock()
}

func (c *Chain) changed() {
	if c.muted.Load() {
		return
	}
	c.Apply()
}

// SetEvents replaces the accumulated events and recomputes the view
func (c *Chain) SetEvents(events []domain.EventItem) {
	c.mu.Lock()
	c.events = append([]domain.EventItem(nil), events...)
	c.mu.Unlock()
	c.Apply()
}

// Append adds events after the existing ones, filtering only the new events
func (c *Chain) Append(events ...domain.EventItem) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	c.events = append(c.events, events...)
	c.view = append(c.view, Select(events, c.filters...)...)
	fn, view := c.onApply, c.view
	c.mu.Unlock()

	if fn != nil {
		fn(view)
	}
}

// Prepend adds events before the existing ones, filtering only the new events
func (c *Chain) Prepend(events ...domain.EventItem) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	c.events = append(append(make([]domain.EventItem, 0, len(events)+len(c.events)), events...), c.events...)
	matched := Select(events, c.filters...)
	c.view = append(matched, c.view...)
	fn, view := c.onApply, c.view
	c.mu.Unlock()

	if fn != nil {
		fn(view)
	}
}

// TrimFront drops events from the front until at most max remain
func (c *Chain) TrimFront(max int) {
	c.trim(max, true)
}

// TrimBack drops events from the back until at most max remain
func (c *Chain) TrimBack(max int) {
	c.trim(max, false)
}

func (c *Chain) trim(max int, front bool) {
	c.mu.Lock()
	if max <= 0 || len(c.events) <= max {
		c.mu.Unlock()
		return
	}
	if front {
		c.events = append([]domain.EventItem(nil), c.events[len(c.events)-max:]...)
	} else {
		c.events = append([]domain.EventItem(nil), c.events[:max]...)
	}
	c.mu.Unlock()
	c.Apply()
}

// Refresh tells every stage the event set changed and recomputes the view.
// reset=true also clears every stage's criteria.
func (c *Chain) Refresh(reset bool) {
	c.mu.Lock()
	filters := append([]Filter(nil), c.filters...)
	events := c.events
	c.mu.Unlock()

	c.muted.Store(true)
	for _, f := range filters {
		f.Refresh(events, reset)
	}
	c.muted.Store(false)

	c.Apply()
}

// Reset drops all events and clears every stage
func (c *Chain) Reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
	c.Refresh(true)
}

// ClearAll clears every stage's criteria and recomputes the view once
func (c *Chain) ClearAll() {
	c.muted.Store(true)
	for _, f := range c.Filters() {
		f.Clear()
	}
	c.muted.Store(false)
	c.Apply()
}

// Active returns the names of the stages that currently exclude something
func (c *Chain) Active() []string {
	var names []string
	for _, f := range c.Filters() {
		if f.Active() {
			names = append(names, f.Name())
		}
	}
	return names
}

// Apply recomputes the view from the accumulated events
func (c *Chain) Apply() {
	c.mu.Lock()
	c.view = Select(c.events, c.filters...)
	fn, view := c.onApply, c.view
	c.mu.Unlock()

	if fn != nil {
		fn(view)
	}
}

// View returns a copy of the filtered view
func (c *Chain) View() []domain.EventItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.EventItem(nil), c.view...)
}

// Events returns a copy of the accumulated events
func (c *Chain) Events() []domain.EventItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.EventItem(nil), c.events...)
}

// Len returns the number of accumulated and visible events
func (c *Chain) Len() (total, visible int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events), len(c.view)
}
