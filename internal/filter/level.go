package filter

import (
	"sort"
	"sync"

	"github.com/charliek/eventlook/internal/domain"
)

// LevelFilter keeps items whose displayed level is in the allowed set
type LevelFilter struct {
	Base

	mu      sync.RWMutex
	allowed map[domain.Level]bool // nil allows everything
	present []domain.Level
}

// NewLevelFilter creates a level filter allowing every level
func NewLevelFilter() *LevelFilter {
	return &LevelFilter{}
}

// Name returns "level"
func (f *LevelFilter) Name() string { return "level" }

// SetLevels restricts the filter to levels. No levels allows everything.
func (f *LevelFilter) SetLevels(levels ...domain.Level) {
	var allowed map[domain.Level]bool
	if len(levels) > 0 {
		allowed = make(map[domain.Level]bool, len(levels))
		for _, l := range levels {
			allowed[l.Display()] = true
		}
	}

	f.mu.Lock()
	if sameLevels(f.allowed, allowed) {
		f.mu.Unlock()
		return
	}
	f.allowed = allowed
	f.mu.Unlock()

	f.Changed()
}

// Toggle adds or removes one level. Toggling from the allow-all state
// allows only that level.
func (f *LevelFilter) Toggle(level domain.Level) {
	current := f.Levels()
	level = level.Display()

	next := make([]domain.Level, 0, len(current)+1)
	found := false
	for _, l := range current {
		if l == level {
			found = true
			continue
		}
		next = append(next, l)
	}
	if !found {
		next = append(next, level)
	}
	if found && len(next) == 0 {
		// removing the last allowed level would hide everything
		next = nil
	}
	f.SetLevels(next...)
}

// Levels returns the allowed levels, most severe first. Empty means all.
func (f *LevelFilter) Levels() []domain.Level {
	f.mu.RLock()
	defer f.mu.RUnlock()
	levels := make([]domain.Level, 0, len(f.allowed))
	for l := range f.allowed {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// Present returns the levels seen in the events of the last Refresh
func (f *LevelFilter) Present() []domain.Level {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]domain.Level(nil), f.present...)
}

// Active returns true if any level is excluded
func (f *LevelFilter) Active() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.allowed != nil
}

// Clear allows every level
func (f *LevelFilter) Clear() {
	f.SetLevels()
}

// Refresh records which levels occur in events and clears on reset
func (f *LevelFilter) Refresh(events []domain.EventItem, reset bool) {
	seen := make(map[domain.Level]bool)
	for _, e := range events {
		seen[e.Level.Display()] = true
	}
	var present []domain.Level
	for _, l := range domain.AllLevels {
		if seen[l] {
			present = append(present, l)
		}
	}

	f.mu.Lock()
	f.present = present
	f.mu.Unlock()

	if reset {
		f.Clear()
	}
}

// IsMatch returns true if the item's level is allowed
func (f *LevelFilter) IsMatch(item domain.EventItem) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.allowed == nil || f.allowed[item.Level.Display()]
}

func sameLevels(a, b map[domain.Level]bool) bool {
	if (a == nil) != (b == nil) || len(a) != len(b) {
		return false
	}
	for l := range a {
		if !b[l] {
			return false
		}
	}
	return true
}
