// Package filter evaluates a chain of predicate stages over event items and
// keeps the filtered view consistent as criteria or events change.
package filter

import (
	"sync"

	"github.com/charliek/eventlook/internal/domain"
)

// Filter is one stage of a Chain.
//
// An inactive stage matches every item. Refresh is called when the chain's
// event set changes; reset=true also clears the stage's criteria. Stages that
// derive choices from the event set (such as the provider list) update them
// in Refresh.
type Filter interface {
	Name() string
	Active() bool
	Clear()
	Refresh(events []domain.EventItem, reset bool)
	IsMatch(item domain.EventItem) bool

	// SetOnChange registers the function called after the stage's
	// criteria changed
	SetOnChange(fn func())
}

// Base provides change notification for Filter implementations
type Base struct {
	mu       sync.Mutex
	onChange func()
}

// SetOnChange registers fn as the change callback
func (b *Base) SetOnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Changed invokes the change callback, if any. Implementations must call it
// without holding their own lock.
func (b *Base) Changed() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// MatchAll returns true if every filter matches item
func MatchAll(item domain.EventItem, filters ...Filter) bool {
	for _, f := range filters {
		if f.Active() && !f.IsMatch(item) {
			return false
		}
	}
	return true
}

// Select returns the items matched by every filter
func Select(events []domain.EventItem, filters ...Filter) []domain.EventItem {
	result := make([]domain.EventItem, 0, len(events))
	for _, e := range events {
		if MatchAll(e, filters...) {
			result = append(result, e)
		}
	}
	return result
}

// SelectLimit selects like Select and returns at most limit items from the
// front along with the total number matched
func SelectLimit(events []domain.EventItem, limit int, filters ...Filter) ([]domain.EventItem, int) {
	selected := Select(events, filters...)
	total := len(selected)
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return selected, total
}
