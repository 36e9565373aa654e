package live

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
)

var subscriptionSeq atomic.Uint64

// Subscription delivers the live events matching its filters
type Subscription struct {
	id      string
	ch      chan domain.EventItem
	filters []filter.Filter
	dropped atomic.Uint64
	closed  atomic.Bool
}

func newSubscription(criteria filter.Criteria, bufferSize int) (*Subscription, error) {
	filters, err := criteria.Filters()
	if err != nil {
		return nil, err
	}
	return &Subscription{
		id:      "sub-" + strconv.FormatUint(subscriptionSeq.Add(1), 10),
		ch:      make(chan domain.EventItem, bufferSize),
		filters: filters,
	}, nil
}

// ID returns the subscription id
func (s *Subscription) ID() string {
	return s.id
}

// Events returns the delivery channel. It is closed on unsubscribe.
func (s *Subscription) Events() <-chan domain.EventItem {
	return s.ch
}

// Dropped returns how many matching events were dropped on a full channel
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Send delivers item if it matches. It never blocks; a full channel drops
// the event and returns false.
func (s *Subscription) Send(item domain.EventItem) bool {
	if s.closed.Load() {
		return false
	}
	if !filter.MatchAll(item, s.filters...) {
		return true
	}
	select {
	case s.ch <- item:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close closes the delivery channel
func (s *Subscription) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Subscribers is the set of subscriptions of one hub
type Subscribers struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	bufferSize int
	logger     *slog.Logger
}

// NewSubscribers creates an empty set whose channels hold bufferSize events
func NewSubscribers(bufferSize int, logger *slog.Logger) *Subscribers {
	if bufferSize <= 0 {
		bufferSize = constants.DefaultSubscriptionBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscribers{
		subs:       make(map[string]*Subscription),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Subscribe adds a subscription for events matching criteria
func (m *Subscribers) Subscribe(criteria filter.Criteria) (*Subscription, error) {
	sub, err := newSubscription(criteria, m.bufferSize)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.subs[sub.id] = sub
	m.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes and closes a subscription. Unknown ids are ignored.
func (m *Subscribers) Unsubscribe(id string) {
	m.mu.Lock()
	sub, ok := m.subs[id]
	delete(m.subs, id)
	m.mu.Unlock()

	if ok {
		sub.Close()
	}
}

// Broadcast offers item to every subscription
func (m *Subscribers) Broadcast(item domain.EventItem) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subs {
		if !sub.Send(item) {
			m.logger.Debug("live event dropped for slow subscriber", "subscription", sub.id, "record_id", item.RecordID)
		}
	}
}

// Count returns the number of subscriptions
func (m *Subscribers) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// Close closes every subscription
func (m *Subscribers) Close() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]*Subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
