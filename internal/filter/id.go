package filter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
)

// IDFilter keeps or drops items by event id.
//
// Criteria are ids separated by commas or spaces. A leading '-' excludes the
// id. When any id is included, only included ids pass.
type IDFilter struct {
	Base

	mu      sync.RWMutex
	text    string
	include map[int]bool
	exclude map[int]bool
}

// NewIDFilter creates an empty event id filter
func NewIDFilter() *IDFilter {
	return &IDFilter{}
}

// Name returns "id"
func (f *IDFilter) Name() string { return "id" }

// Text returns the current criteria
func (f *IDFilter) Text() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.text
}

// SetText parses and applies criteria such as "4624, 4625 -4634"
func (f *IDFilter) SetText(text string) error {
	include, exclude, err := ParseIDs(text)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if text == f.text {
		f.mu.Unlock()
		return nil
	}
	f.text = text
	f.include = include
	f.exclude = exclude
	f.mu.Unlock()

	f.Changed()
	return nil
}

// ParseIDs parses id criteria into include and exclude sets
func ParseIDs(text string) (include, exclude map[int]bool, err error) {
	if len(text) > constants.MaxPatternLength {
		return nil, nil, fmt.Errorf("%w: pattern exceeds maximum length of %d characters", domain.ErrInvalidPattern, constants.MaxPatternLength)
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	for _, field := range fields {
		target := &include
		if strings.HasPrefix(field, "-") {
			target = &exclude
			field = field[1:]
		}
		id, convErr := strconv.Atoi(field)
		if convErr != nil || id < 0 {
			return nil, nil, fmt.Errorf("%w: invalid event id %q", domain.ErrInvalidPattern, field)
		}
		if *target == nil {
			*target = make(map[int]bool)
		}
		(*target)[id] = true
	}
	return include, exclude, nil
}

// Active returns true if any id is included or excluded
func (f *IDFilter) Active() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.include) > 0 || len(f.exclude) > 0
}

// Clear removes the criteria
func (f *IDFilter) Clear() {
	_ = f.SetText("")
}

// Refresh clears on reset
func (f *IDFilter) Refresh(_ []domain.EventItem, reset bool) {
	if reset {
		f.Clear()
	}
}

// IsMatch applies the include and exclude sets to the item's event id
func (f *IDFilter) IsMatch(item domain.EventItem) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.exclude[item.EventID] {
		return false
	}
	return len(f.include) == 0 || f.include[item.EventID]
}
