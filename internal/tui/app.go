package tui

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/eventlook/internal/reader"
	"github.com/charliek/eventlook/internal/session"
)

// Run starts the viewer and blocks until the user quits
func Run(svc *reader.Service, opts Options, logger *slog.Logger) error {
	model, err := NewModel(svc, opts, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	relay := newSnapshotRelay()
	model.Session().OnUpdate(relay.publish)
	go relay.forward(ctx, p)

	_, runErr := p.Run()

	// Cleanup: stop reads and live events before the relay
	model.Session().OnUpdate(nil)
	svc.Cancel()
	svc.UnsubscribeEvents()
	cancel()

	return runErr
}

// snapshotRelay hands session snapshots to the program. Snapshots are
// published from reader goroutines and from inside Update, where a
// blocking Program.Send would deadlock, so only the latest one is kept.
type snapshotRelay struct {
	mu     sync.Mutex
	latest *session.Snapshot
	signal chan struct{}
}

func newSnapshotRelay() *snapshotRelay {
	return &snapshotRelay{signal: make(chan struct{}, 1)}
}

// publish stores snap and wakes the forwarder without blocking
func (r *snapshotRelay) publish(snap session.Snapshot) {
	r.mu.Lock()
	r.latest = &snap
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// take returns the pending snapshot, if any
func (r *snapshotRelay) take() (session.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return session.Snapshot{}, false
	}
	snap := *r.latest
	r.latest = nil
	return snap, true
}

// forward sends snapshots to the program until ctx is cancelled
func (r *snapshotRelay) forward(ctx context.Context, p *tea.Program) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.signal:
			if snap, ok := r.take(); ok {
				p.Send(SnapshotMsg(snap))
			}
		}
	}
}
