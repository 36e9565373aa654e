package live

import (
	"sync"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
)

// RingBuffer keeps the most recent live events of a channel
type RingBuffer struct {
	mu    sync.RWMutex
	items []domain.EventItem
	next  int // slot for the next write
	size  int
}

// NewRingBuffer creates a ring buffer holding up to capacity events
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = constants.DefaultLiveBufferSize
	}
	return &RingBuffer{items: make([]domain.EventItem, capacity)}
}

// Write stores item, overwriting the oldest event when full
func (b *RingBuffer) Write(item domain.EventItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.next] = item
	b.next = (b.next + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Read returns every stored event, oldest first
func (b *RingBuffer) Read() []domain.EventItem {
	return b.ReadLast(b.Capacity())
}

// ReadLast returns up to n of the newest events, oldest first
func (b *RingBuffer) ReadLast(n int) []domain.EventItem {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return nil
	}

	out := make([]domain.EventItem, n)
	capacity := len(b.items)
	first := (b.next - n + capacity) % capacity
	for i := range out {
		out[i] = b.items[(first+i)%capacity]
	}
	return out
}

// Count returns the number of stored events
func (b *RingBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity returns the maximum number of stored events
func (b *RingBuffer) Capacity() int {
	return len(b.items)
}

// Clear drops every stored event
func (b *RingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.items)
	b.next = 0
	b.size = 0
}
