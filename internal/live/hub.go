// Package live fans out the live events of log channels to many readers.
// Each channel gets a Hub that keeps a subscription open on the reader
// engine, remembers recent events and broadcasts new ones.
package live

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/reader"
)

// Stats describes one hub
type Stats struct {
	Channel     string `json:"channel"`
	Buffered    int    `json:"buffered"`
	Capacity    int    `json:"capacity"`
	Subscribers int    `json:"subscribers"`
	Received    uint64 `json:"received"`
	Faults      uint64 `json:"faults"`
	LastError   string `json:"last_error,omitempty"`
}

// Hub is the live fan-out point of one channel. It implements reader.Sink.
type Hub struct {
	channel string
	reader  *reader.Service
	buffer  *RingBuffer
	subs    *Subscribers
	logger  *slog.Logger

	received atomic.Uint64
	faults   atomic.Uint64

	mu        sync.Mutex
	lastError string
	started   bool
}

// NewHub creates a hub for channel. The hub takes over svc's live
// subscription; Start opens it.
func NewHub(channel string, svc *reader.Service, config Config, logger *slog.Logger) *Hub {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("channel", channel)
	return &Hub{
		channel: channel,
		reader:  svc,
		buffer:  NewRingBuffer(config.BufferSize),
		subs:    NewSubscribers(config.SubscriptionBuffer, logger),
		logger:  logger,
	}
}

// Channel returns the channel name
func (h *Hub) Channel() string {
	return h.channel
}

// Start subscribes to the channel's live events
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}

	if !h.reader.IsValidLog(h.channel, domain.PathTypeLogName) {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, h.channel)
	}
	if !h.reader.SubscribeEvents(domain.NewChannelSource(h.channel), h) {
		return fmt.Errorf("%w: cannot subscribe to %s", domain.ErrProviderFault, h.channel)
	}
	h.started = true
	go h.watchEnd(h.reader.SubscriptionDone())
	h.logger.Info("live hub started")
	return nil
}

// watchEnd closes the subscribers once the reader subscription ends on its
// own, e.g. when the channel file is removed and not recreated
func (h *Hub) watchEnd(done <-chan struct{}) {
	if done != nil {
		<-done
	}
	h.mu.Lock()
	ended := h.started
	h.started = false
	h.mu.Unlock()

	if !ended {
		return
	}
	h.subs.Close()
	h.logger.Warn("live hub subscription ended")
}

// Active reports whether the hub still receives live events
func (h *Hub) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// Report stores and broadcasts live deliveries
func (h *Hub) Report(info domain.ProgressInfo) {
	if info.HasError() {
		h.faults.Add(1)
		h.mu.Lock()
		h.lastError = info.ErrorMessage
		h.mu.Unlock()
		h.logger.Warn("live delivery failed", "error", info.ErrorMessage)
		return
	}
	for _, item := range info.Events {
		h.received.Add(1)
		h.buffer.Write(item)
		h.subs.Broadcast(item)
	}
}

// Recent returns up to limit of the newest buffered events matching
// criteria, oldest first, and the number that matched
func (h *Hub) Recent(criteria filter.Criteria, limit int) ([]domain.EventItem, int, error) {
	filters, err := criteria.Filters()
	if err != nil {
		return nil, 0, err
	}
	matched := filter.Select(h.buffer.Read(), filters...)
	total := len(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, total, nil
}

// Subscribe registers a subscriber for new events matching criteria
func (h *Hub) Subscribe(criteria filter.Criteria) (*Subscription, error) {
	return h.subs.Subscribe(criteria)
}

// Unsubscribe removes a subscriber
func (h *Hub) Unsubscribe(id string) {
	h.subs.Unsubscribe(id)
}

// Stats returns the hub's counters
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	lastError := h.lastError
	h.mu.Unlock()
	return Stats{
		Channel:     h.channel,
		Buffered:    h.buffer.Count(),
		Capacity:    h.buffer.Capacity(),
		Subscribers: h.subs.Count(),
		Received:    h.received.Load(),
		Faults:      h.faults.Load(),
		LastError:   lastError,
	}
}

// Close stops the live subscription and closes every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	started := h.started
	h.started = false
	h.mu.Unlock()

	if started {
		h.reader.UnsubscribeEvents()
	}
	h.subs.Close()
	h.logger.Info("live hub stopped")
}
