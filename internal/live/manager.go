package live

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/eventlog"
	"github.com/charliek/eventlook/internal/reader"
)

// Config holds hub sizing
type Config struct {
	BufferSize         int // recent events kept per channel
	SubscriptionBuffer int // per subscriber channel size
}

// DefaultConfig returns the default hub sizing
func DefaultConfig() Config {
	return Config{
		BufferSize:         constants.DefaultLiveBufferSize,
		SubscriptionBuffer: constants.DefaultSubscriptionBuffer,
	}
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = constants.DefaultLiveBufferSize
	}
	if c.SubscriptionBuffer <= 0 {
		c.SubscriptionBuffer = constants.DefaultSubscriptionBuffer
	}
	return c
}

// Manager starts one hub per channel on first use
type Manager struct {
	provider eventlog.Provider
	config   Config
	logger   *slog.Logger

	mu   sync.Mutex
	hubs map[string]*Hub
}

// NewManager creates a manager whose hubs read from provider
func NewManager(provider eventlog.Provider, config Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		provider: provider,
		config:   config.withDefaults(),
		logger:   logger,
		hubs:     make(map[string]*Hub),
	}
}

// Hub returns the started hub for channel, creating it if needed. A hub
// whose subscription has ended is replaced.
func (m *Manager) Hub(channel string) (*Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.hubs[channel]; ok {
		if h.Active() {
			return h, nil
		}
		delete(m.hubs, channel)
		h.Close()
	}
	h := NewHub(channel, reader.New(m.provider, m.logger), m.config, m.logger)
	if err := h.Start(); err != nil {
		return nil, err
	}
	m.hubs[channel] = h
	return h, nil
}

// Stats returns the stats of every hub, sorted by channel
func (m *Manager) Stats() []Stats {
	m.mu.Lock()
	hubs := make([]*Hub, 0, len(m.hubs))
	for _, h := range m.hubs {
		hubs = append(hubs, h)
	}
	m.mu.Unlock()

	stats := make([]Stats, 0, len(hubs))
	for _, h := range hubs {
		stats = append(stats, h.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Channel < stats[j].Channel })
	return stats
}

// Close stops every hub
func (m *Manager) Close() {
	m.mu.Lock()
	hubs := m.hubs
	m.hubs = make(map[string]*Hub)
	m.mu.Unlock()

	for _, h := range hubs {
		h.Close()
	}
}
