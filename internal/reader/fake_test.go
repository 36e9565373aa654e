package reader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
)

var testBase = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func makeRecords(n int) []eventlog.Record {
	recs := make([]eventlog.Record, n)
	for i := range recs {
		recs[i] = eventlog.Record{
			RecordID:    int64(i + 1),
			TimeCreated: testBase.Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano),
			Level:       4,
			EventID:     7000 + i,
			Provider:    "Service Control Manager",
			Computer:    "WS-01",
			Message:     fmt.Sprintf("record %d", i+1),
		}
	}
	return recs
}

// fakeProvider serves fixed records and lets tests inject faults
type fakeProvider struct {
	records []eventlog.Record
	openErr error
	failAt  int // Next returns failErr at this index when > 0
	failErr error
	onNext  func(i int)

	channels map[string]bool
	archives map[string]bool

	mu       sync.Mutex
	watchCh  chan eventlog.Notification
	watches  int
	watchers []*fakeWatcher
	lastQ    eventlog.Query
}

func (p *fakeProvider) Open(ctx context.Context, q eventlog.Query) (eventlog.Reader, error) {
	p.mu.Lock()
	p.lastQ = q
	p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	recs := p.records
	if q.Reverse {
		recs = make([]eventlog.Record, len(p.records))
		for i, r := range p.records {
			recs[len(recs)-1-i] = r
		}
	}
	return &fakeReader{p: p, recs: recs}, nil
}

func (p *fakeProvider) Watch(ctx context.Context, channel string) (eventlog.Watcher, error) {
	if !p.channels[channel] {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, channel)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watches++
	p.watchCh = make(chan eventlog.Notification, 16)
	w := &fakeWatcher{ch: p.watchCh}
	p.watchers = append(p.watchers, w)
	return w, nil
}

// stopWatch ends the latest watcher as a provider would when its channel
// goes away
func (p *fakeProvider) stopWatch() {
	p.mu.Lock()
	w := p.watchers[len(p.watchers)-1]
	p.mu.Unlock()
	w.Close()
}

func (p *fakeProvider) openWatchers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.watchers {
		if !w.closed.Load() {
			n++
		}
	}
	return n
}

func (p *fakeProvider) push(n eventlog.Notification) {
	p.mu.Lock()
	ch := p.watchCh
	p.mu.Unlock()
	ch <- n
}

func (p *fakeProvider) ChannelConfig(name string) error {
	if !p.channels[name] {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (p *fakeProvider) ArchiveInfo(path string) error {
	if !p.archives[path] {
		return domain.ErrSourceNotFound
	}
	return nil
}

type fakeReader struct {
	p    *fakeProvider
	recs []eventlog.Record
	pos  int
}

func (r *fakeReader) Next() (*eventlog.Record, error) {
	if r.p.failAt > 0 && r.pos == r.p.failAt {
		return nil, r.p.failErr
	}
	if r.pos >= len(r.recs) {
		return nil, io.EOF
	}
	if r.p.onNext != nil {
		r.p.onNext(r.pos)
	}
	rec := r.recs[r.pos]
	r.pos++
	return &rec, nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWatcher struct {
	ch     chan eventlog.Notification
	once   sync.Once
	closed atomic.Bool
}

func (w *fakeWatcher) Notifications() <-chan eventlog.Notification { return w.ch }

func (w *fakeWatcher) Close() error {
	w.once.Do(func() {
		w.closed.Store(true)
		close(w.ch)
	})
	return nil
}
