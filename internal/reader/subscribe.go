package reader

import (
	"context"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
)

// subscription is the active live subscription of a Service
type subscription struct {
	source  domain.LogSource
	watcher eventlog.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// SubscribeEvents pushes every record written to a channel source from now
// on to sink, one single-event batch per record. Any existing subscription is
// released first. It returns false for archive sources or when the provider
// rejects the subscription.
func (s *Service) SubscribeEvents(source domain.LogSource, sink Sink) bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.unsubscribe()

	if !source.IsChannel() {
		s.logger.Debug("live subscription not supported for archives", "source", source.String())
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	w, err := s.provider.Watch(ctx, source.Path)
	if err != nil {
		cancel()
		s.logger.Info("subscribe failed", "source", source.String(), "error", err)
		return false
	}

	sub := &subscription{
		source:  source,
		watcher: w,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	go s.consume(sub, sink)

	s.logger.Debug("subscribed", "source", source.String())
	return true
}

// consume delivers watcher notifications until the watcher closes. A watcher
// that stops on its own ends the subscription.
func (s *Service) consume(sub *subscription, sink Sink) {
	defer close(sub.done)
	defer s.ended(sub)

	for n := range sub.watcher.Notifications() {
		if n.Err != nil {
			s.logger.Warn("live record dropped", "source", sub.source.String(), "error", n.Err)
			sink.Report(liveError(n.Err))
			continue
		}

		item, err := n.Record.Decode()
		if err != nil {
			s.logger.Warn("live record dropped", "source", sub.source.String(), "error", err)
			sink.Report(liveError(err))
			continue
		}

		sink.Report(domain.ProgressInfo{
			Events:     []domain.EventItem{item},
			IsFirst:    true,
			IsComplete: true,
		})
	}
}

// ended clears sub if it is still the active subscription
func (s *Service) ended(sub *subscription) {
	s.mu.Lock()
	active := s.sub == sub
	if active {
		s.sub = nil
	}
	s.mu.Unlock()

	if !active {
		return
	}
	sub.cancel()
	if err := sub.watcher.Close(); err != nil {
		s.logger.Debug("closing watcher", "source", sub.source.String(), "error", err)
	}
	s.logger.Info("live subscription ended", "source", sub.source.String())
}

func liveError(err error) domain.ProgressInfo {
	return domain.ProgressInfo{
		IsFirst:      true,
		IsComplete:   true,
		ErrorMessage: domain.UserMessage(err),
	}
}

// UnsubscribeEvents releases the active subscription, if any, and waits for
// its delivery goroutine to exit. It is safe to call repeatedly but must not
// be called from inside the subscription's sink.
func (s *Service) UnsubscribeEvents() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.unsubscribe()
}

func (s *Service) unsubscribe() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return
	}

	sub.cancel()
	if err := sub.watcher.Close(); err != nil {
		s.logger.Debug("closing watcher", "source", sub.source.String(), "error", err)
	}
	<-sub.done
	s.logger.Debug("unsubscribed", "source", sub.source.String())
}

// Subscribed returns true while a live subscription is active. It turns
// false when the provider ends the subscription.
func (s *Service) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

// SubscriptionDone returns a channel that is closed when the active
// subscription ends, or nil when there is none
func (s *Service) SubscriptionDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	return s.sub.done
}
