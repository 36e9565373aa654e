// Package session holds the events of one log source and the filter chain
// over them. It receives reader deliveries through its history and live
// sinks.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/reader"
)

// Status describes the current read
type Status struct {
	Source      domain.LogSource
	Reading     bool
	Complete    bool
	Error       string
	Read        int // events delivered by the current read
	Live        int // live events received since the read started
	LiveError   string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Elapsed returns the duration of the read so far
func (s Status) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.CompletedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// Snapshot is the state published after each change
type Snapshot struct {
	View   []domain.EventItem
	Total  int
	Status Status
}

// Config configures a Session
type Config struct {
	// MaxEvents bounds the accumulated events. Zero uses the default.
	MaxEvents int

	// NewestFirst matches the read direction; live events are then
	// prepended instead of appended.
	NewestFirst bool
}

// Session owns the accumulated events, the filter chain and the read status.
// Deliveries and filter edits may come from different goroutines.
type Session struct {
	Message  *filter.MessageFilter
	Level    *filter.LevelFilter
	Provider *filter.ProviderFilter
	ID       *filter.IDFilter

	chain  *filter.Chain
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	status   Status
	onUpdate func(Snapshot)
}

// New creates a session with the message, level, provider and id stages
func New(config Config, logger *slog.Logger) *Session {
	if config.MaxEvents <= 0 {
		config.MaxEvents = constants.DefaultMaxEvents
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		Message:  filter.NewMessageFilter(),
		Level:    filter.NewLevelFilter(),
		Provider: filter.NewProviderFilter(),
		ID:       filter.NewIDFilter(),
		config:   config,
		logger:   logger,
	}
	s.chain = filter.NewChain(s.Message, s.Level, s.Provider, s.ID)
	s.chain.OnApply(s.applied)
	return s
}

// Chain returns the session's filter chain
func (s *Session) Chain() *filter.Chain {
	return s.chain
}

// OnUpdate registers fn to receive a snapshot after every change.
// fn runs on the goroutine that caused the change.
func (s *Session) OnUpdate(fn func(Snapshot)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// SetNewestFirst changes the direction used for the next read and for live
// events
func (s *Session) SetNewestFirst(newestFirst bool) {
	s.mu.Lock()
	s.config.NewestFirst = newestFirst
	s.mu.Unlock()
}

// NewestFirst returns the current direction
func (s *Session) NewestFirst() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.NewestFirst
}

// Begin marks the start of a read of source. Events stay visible until the
// first batch arrives. resetFilters clears every stage's criteria.
func (s *Session) Begin(source domain.LogSource, resetFilters bool) {
	s.mu.Lock()
	s.status = Status{
		Source:    source,
		Reading:   true,
		StartedAt: time.Now(),
	}
	s.mu.Unlock()

	if resetFilters {
		s.chain.ClearAll()
		return
	}
	s.publish()
}

// ApplyCriteria sets every stage from criteria
func (s *Session) ApplyCriteria(c filter.Criteria) error {
	return c.ApplyTo(s.Message, s.Level, s.Provider, s.ID)
}

// Status returns the current read status
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns the current view, total and status
func (s *Session) Snapshot() Snapshot {
	total, _ := s.chain.Len()
	return Snapshot{
		View:   s.chain.View(),
		Total:  total,
		Status: s.Status(),
	}
}

// HistorySink returns the sink for ReadEvents deliveries. The first batch
// replaces the accumulated events, later batches append, and the terminal
// batch completes the status and refreshes the filter stages.
func (s *Session) HistorySink() reader.Sink {
	return reader.SinkFunc(s.reportHistory)
}

// LiveSink returns the sink for SubscribeEvents deliveries. Each event is
// added at the newest end of the accumulated events.
func (s *Session) LiveSink() reader.Sink {
	return reader.SinkFunc(s.reportLive)
}

func (s *Session) reportHistory(info domain.ProgressInfo) {
	if info.IsFirst {
		s.chain.SetEvents(info.Events)
	} else {
		s.chain.Append(info.Events...)
	}

	s.mu.Lock()
	if info.IsFirst {
		s.status.Read = 0
	}
	s.status.Read += len(info.Events)
	newestFirst := s.config.NewestFirst
	s.mu.Unlock()

	s.trim(newestFirst)

	if info.IsComplete {
		s.mu.Lock()
		s.status.Reading = false
		s.status.Complete = true
		s.status.Error = info.ErrorMessage
		s.status.CompletedAt = time.Now()
		s.mu.Unlock()

		if info.HasError() {
			s.logger.Info("read finished with error", "error", info.ErrorMessage)
		}
		s.chain.Refresh(false)
	}
}

func (s *Session) reportLive(info domain.ProgressInfo) {
	if info.HasError() {
		s.mu.Lock()
		s.status.LiveError = info.ErrorMessage
		s.mu.Unlock()
		s.publish()
		return
	}

	s.mu.Lock()
	s.status.Live += len(info.Events)
	s.status.LiveError = ""
	newestFirst := s.config.NewestFirst
	s.mu.Unlock()

	if newestFirst {
		s.chain.Prepend(info.Events...)
	} else {
		s.chain.Append(info.Events...)
	}
	s.trim(newestFirst)
}

// trim drops the oldest events beyond MaxEvents
func (s *Session) trim(newestFirst bool) {
	if newestFirst {
		s.chain.TrimBack(s.config.MaxEvents)
	} else {
		s.chain.TrimFront(s.config.MaxEvents)
	}
}

// Clear drops every event and filter criteria
func (s *Session) Clear() {
	s.mu.Lock()
	s.status = Status{Source: s.status.Source}
	s.mu.Unlock()
	s.chain.Reset()
}

func (s *Session) applied(view []domain.EventItem) {
	s.mu.Lock()
	fn := s.onUpdate
	status := s.status
	s.mu.Unlock()
	if fn == nil {
		return
	}

	total, _ := s.chain.Len()
	fn(Snapshot{
		View:   append([]domain.EventItem(nil), view...),
		Total:  total,
		Status: status,
	})
}

func (s *Session) publish() {
	s.applied(s.chain.View())
}
