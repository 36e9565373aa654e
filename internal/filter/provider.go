package filter

import (
	"sort"
	"strings"
	"sync"

	"github.com/charliek/eventlook/internal/domain"
)

// ProviderFilter keeps items from one provider. The list of selectable
// providers is rebuilt from the event set on every Refresh.
type ProviderFilter struct {
	Base

	mu       sync.RWMutex
	selected string
	options  []string
}

// NewProviderFilter creates a provider filter with nothing selected
func NewProviderFilter() *ProviderFilter {
	return &ProviderFilter{}
}

// Name returns "provider"
func (f *ProviderFilter) Name() string { return "provider" }

// Select keeps only items from provider. An empty name selects all.
func (f *ProviderFilter) Select(provider string) {
	f.mu.Lock()
	if strings.EqualFold(f.selected, provider) {
		f.mu.Unlock()
		return
	}
	f.selected = provider
	f.mu.Unlock()

	f.Changed()
}

// Selected returns the selected provider, "" when none
func (f *ProviderFilter) Selected() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selected
}

// Options returns the distinct provider names of the last Refresh, sorted
func (f *ProviderFilter) Options() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.options...)
}

// Cycle selects the next option after the current selection, wrapping to
// "all" after the last one
func (f *ProviderFilter) Cycle() string {
	options := f.Options()
	current := f.Selected()

	next := ""
	if current == "" {
		if len(options) > 0 {
			next = options[0]
		}
	} else {
		for i, o := range options {
			if strings.EqualFold(o, current) && i+1 < len(options) {
				next = options[i+1]
				break
			}
		}
	}
	f.Select(next)
	return next
}

// Active returns true if a provider is selected
func (f *ProviderFilter) Active() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selected != ""
}

// Clear selects all providers
func (f *ProviderFilter) Clear() {
	f.Select("")
}

// Refresh rebuilds the provider list. A selected provider missing from the
// new event set stays selected.
func (f *ProviderFilter) Refresh(events []domain.EventItem, reset bool) {
	seen := make(map[string]bool)
	options := make([]string, 0)
	for _, e := range events {
		if e.Provider == "" || seen[e.Provider] {
			continue
		}
		seen[e.Provider] = true
		options = append(options, e.Provider)
	}
	sort.Strings(options)

	f.mu.Lock()
	f.options = options
	f.mu.Unlock()

	if reset {
		f.Clear()
	}
}

// IsMatch returns true if the item comes from the selected provider
func (f *ProviderFilter) IsMatch(item domain.EventItem) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selected == "" || strings.EqualFold(item.Provider, f.selected)
}
