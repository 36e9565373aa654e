package live

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/reader"
)

func newStore(t *testing.T, channels ...string) *eventlog.Store {
	t.Helper()
	store := eventlog.NewStore(eventlog.StoreConfig{Root: t.TempDir()}, nil)
	for _, ch := range channels {
		_, err := store.Append(ch, eventlog.Record{Provider: "seed", Message: "seed"})
		require.NoError(t, err)
	}
	return store
}

func receiveItem(t *testing.T, sub *Subscription) domain.EventItem {
	t.Helper()
	select {
	case item, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return item
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for live event")
		return domain.EventItem{}
	}
}

func TestHub_ReportBuffersAndBroadcasts(t *testing.T) {
	h := NewHub("System", reader.New(newStore(t), nil), Config{BufferSize: 3}, nil)
	sub, err := h.Subscribe(filter.Criteria{Message: "disk"})
	require.NoError(t, err)

	for i := int64(1); i <= 4; i++ {
		msg := "network up"
		if i%2 == 0 {
			msg = "disk warning"
		}
		h.Report(domain.ProgressInfo{Events: []domain.EventItem{makeItem(i, msg)}, IsFirst: true, IsComplete: true})
	}
	h.Report(domain.ProgressInfo{IsFirst: true, IsComplete: true, ErrorMessage: "cannot decode event record"})

	assert.Equal(t, int64(2), receiveItem(t, sub).RecordID)
	assert.Equal(t, int64(4), receiveItem(t, sub).RecordID)

	recent, total, err := h.Recent(filter.Criteria{}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []int64{3, 4}, recordIDs(recent))

	stats := h.Stats()
	assert.Equal(t, uint64(4), stats.Received)
	assert.Equal(t, uint64(1), stats.Faults)
	assert.Equal(t, "cannot decode event record", stats.LastError)
	assert.Equal(t, 3, stats.Buffered)
	assert.Equal(t, 1, stats.Subscribers)
}

func TestHub_StartMissingChannel(t *testing.T) {
	h := NewHub("Missing", reader.New(newStore(t), nil), DefaultConfig(), nil)
	err := h.Start()
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestManager_StreamsAppendedRecords(t *testing.T) {
	store := newStore(t, "Application")
	m := NewManager(store, DefaultConfig(), nil)
	defer m.Close()

	h, err := m.Hub("Application")
	require.NoError(t, err)
	again, err := m.Hub("Application")
	require.NoError(t, err)
	assert.Same(t, h, again)

	sub, err := h.Subscribe(filter.Criteria{Levels: []domain.Level{domain.LevelError}})
	require.NoError(t, err)

	_, err = store.Append("Application", eventlog.Record{Level: 4, Provider: "App", Message: "fine"})
	require.NoError(t, err)
	_, err = store.Append("Application", eventlog.Record{Level: 2, Provider: "App", Message: "Faulting application %1", Data: []string{"app.exe"}})
	require.NoError(t, err)

	item := receiveItem(t, sub)
	assert.Equal(t, "Faulting application app.exe", item.Message)

	require.Eventually(t, func() bool { return h.Stats().Received == 2 }, 5*time.Second, 10*time.Millisecond)
	stats := m.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "Application", stats[0].Channel)
}

func TestManager_HubMissingChannel(t *testing.T) {
	m := NewManager(newStore(t), DefaultConfig(), nil)
	defer m.Close()

	_, err := m.Hub("Nope")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	assert.Empty(t, m.Stats())
}

func TestManager_CloseClosesSubscribers(t *testing.T) {
	store := newStore(t, "System")
	m := NewManager(store, DefaultConfig(), nil)

	h, err := m.Hub("System")
	require.NoError(t, err)
	sub, err := h.Subscribe(filter.Criteria{})
	require.NoError(t, err)

	m.Close()
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestManager_ChannelFileRecreated(t *testing.T) {
	store := newStore(t, "Application")
	m := NewManager(store, DefaultConfig(), nil)
	defer m.Close()

	h, err := m.Hub("Application")
	require.NoError(t, err)
	sub, err := h.Subscribe(filter.Criteria{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(store.ChannelPath("Application")))
	_, err = store.Append("Application", eventlog.Record{Provider: "App", Message: "after rotation"})
	require.NoError(t, err)

	assert.Equal(t, "after rotation", receiveItem(t, sub).Message)
	assert.True(t, h.Active())

	again, err := m.Hub("Application")
	require.NoError(t, err)
	assert.Same(t, h, again)
}

func TestManager_ReplacesEndedHub(t *testing.T) {
	store := eventlog.NewStore(eventlog.StoreConfig{Root: t.TempDir(), WatchReconnect: 50 * time.Millisecond}, nil)
	_, err := store.Append("Application", eventlog.Record{Provider: "seed", Message: "seed"})
	require.NoError(t, err)
	m := NewManager(store, DefaultConfig(), nil)
	defer m.Close()

	h, err := m.Hub("Application")
	require.NoError(t, err)
	sub, err := h.Subscribe(filter.Criteria{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(store.ChannelPath("Application")))

	select {
	case _, open := <-sub.Events():
		assert.False(t, open, "subscribers are closed when the channel is gone")
	case <-time.After(5 * time.Second):
		t.Fatal("subscription was not closed")
	}
	assert.False(t, h.Active())
	assert.Equal(t, uint64(1), h.Stats().Faults)
	assert.Contains(t, h.Stats().LastError, "not found")

	_, err = m.Hub("Application")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = store.Append("Application", eventlog.Record{Provider: "App", Message: "back"})
	require.NoError(t, err)
	fresh, err := m.Hub("Application")
	require.NoError(t, err)
	assert.NotSame(t, h, fresh)

	sub, err = fresh.Subscribe(filter.Criteria{})
	require.NoError(t, err)
	_, err = store.Append("Application", eventlog.Record{Provider: "App", Message: "live again"})
	require.NoError(t, err)
	assert.Equal(t, "live again", receiveItem(t, sub).Message)
}
