package filter

import (
	"fmt"
	"sync"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
)

// MessageFilter matches the rendered message against a free-text query
type MessageFilter struct {
	Base

	mu    sync.RWMutex
	text  string
	query Query
}

// NewMessageFilter creates an empty message filter
func NewMessageFilter() *MessageFilter {
	return &MessageFilter{}
}

// Name returns "message"
func (f *MessageFilter) Name() string { return "message" }

// Text returns the current criteria
func (f *MessageFilter) Text() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.text
}

// SetText replaces the criteria and notifies the chain if it changed
func (f *MessageFilter) SetText(text string) error {
	if len(text) > constants.MaxPatternLength {
		return fmt.Errorf("%w: pattern exceeds maximum length of %d characters", domain.ErrInvalidPattern, constants.MaxPatternLength)
	}

	f.mu.Lock()
	if text == f.text {
		f.mu.Unlock()
		return nil
	}
	f.text = text
	f.query = ParseQuery(text)
	f.mu.Unlock()

	f.Changed()
	return nil
}

// Active returns true if the criteria can exclude anything
func (f *MessageFilter) Active() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.query.Empty()
}

// Clear removes the criteria
func (f *MessageFilter) Clear() {
	_ = f.SetText("")
}

// Refresh clears on reset. The criteria do not depend on the event set.
func (f *MessageFilter) Refresh(_ []domain.EventItem, reset bool) {
	if reset {
		f.Clear()
	}
}

// IsMatch returns true if the item's message satisfies the query
func (f *MessageFilter) IsMatch(item domain.EventItem) bool {
	f.mu.RLock()
	q := f.query
	f.mu.RUnlock()
	return q.Match(item.Message)
}
