package reader

import (
	"sync"

	"github.com/charliek/eventlook/internal/domain"
)

// Sink receives progress batches from a read or a live subscription.
// Report must not block indefinitely. It is called from the reading
// goroutine for historical reads and from the subscription goroutine for
// live events, never concurrently for the same operation.
type Sink interface {
	Report(info domain.ProgressInfo)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(info domain.ProgressInfo)

// Report calls f(info)
func (f SinkFunc) Report(info domain.ProgressInfo) {
	f(info)
}

// Collector is a Sink that keeps every batch it receives
type Collector struct {
	mu      sync.Mutex
	batches []domain.ProgressInfo
}

// Report records the batch
func (c *Collector) Report(info domain.ProgressInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, info)
}

// Batches returns a copy of the received batches in delivery order
func (c *Collector) Batches() []domain.ProgressInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ProgressInfo, len(c.batches))
	copy(out, c.batches)
	return out
}

// Events returns all received events flattened in delivery order
func (c *Collector) Events() []domain.EventItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.EventItem
	for _, b := range c.batches {
		out = append(out, b.Events...)
	}
	return out
}

// Terminal returns the last batch if it is complete
func (c *Collector) Terminal() (domain.ProgressInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.batches) == 0 {
		return domain.ProgressInfo{}, false
	}
	last := c.batches[len(c.batches)-1]
	return last, last.IsComplete
}
