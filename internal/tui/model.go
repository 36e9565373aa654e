package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/reader"
	"github.com/charliek/eventlook/internal/session"
)

// Mode represents the current TUI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeMessage
	ModeID
	ModeHelp
)

// maxErrorDisplayLen is the maximum length of error messages in the status bar
const maxErrorDisplayLen = 80

// Options configures the viewer
type Options struct {
	Source domain.LogSource

	// From and To bound the read. When both are zero a channel read covers
	// the last Range, recomputed on every reload.
	From  time.Time
	To    time.Time
	Range time.Duration

	NewestFirst bool
	MaxEvents   int
	Criteria    filter.Criteria

	// Tail subscribes to live events once the first read completes
	Tail bool
}

// Model is the bubbletea model for the viewer
type Model struct {
	sess   *session.Session
	reader *reader.Service
	opts   Options
	logger *slog.Logger

	snapshot session.Snapshot

	// UI components
	viewport  viewport.Model
	textInput textinput.Model

	mode Mode

	reading       bool
	reloadPending bool
	tail          bool
	subscribed    bool
	follow        bool

	lastErr string

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewModel creates a viewer over svc. It fails when the initial criteria
// are invalid.
func NewModel(svc *reader.Service, opts Options, logger *slog.Logger) (Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Range <= 0 {
		opts.Range = constants.DefaultReadRange
	}
	sess := session.New(session.Config{MaxEvents: opts.MaxEvents, NewestFirst: opts.NewestFirst}, logger)
	if err := sess.ApplyCriteria(opts.Criteria); err != nil {
		return Model{}, err
	}

	ti := textinput.New()
	ti.CharLimit = constants.MaxPatternLength
	ti.Width = 50

	return Model{
		sess:      sess,
		reader:    svc,
		opts:      opts,
		logger:    logger,
		snapshot:  sess.Snapshot(),
		textInput: ti,
		mode:      ModeNormal,
		reading:   true, // Init starts the first read
		tail:      opts.Tail,
		follow:    true,
	}, nil
}

// Session returns the session behind the viewer
func (m Model) Session() *session.Session {
	return m.sess
}

// Init starts the first read
func (m Model) Init() tea.Cmd {
	return m.readCmd()
}

// SnapshotMsg carries a session snapshot published outside the update loop
type SnapshotMsg session.Snapshot

// readDoneMsg is sent when a historical read returns
type readDoneMsg struct {
	count int
}

// tailMsg is the result of toggling the live subscription
type tailMsg struct {
	on  bool
	err string
}

// readCmd runs a full read of the source. The sink feeds the session, which
// publishes snapshots as batches arrive.
func (m Model) readCmd() tea.Cmd {
	sess, svc, opts := m.sess, m.reader, m.opts
	newestFirst := sess.NewestFirst()
	return func() tea.Msg {
		from, to := opts.From, opts.To
		if from.IsZero() && to.IsZero() && opts.Source.IsChannel() {
			from, to = domain.RangeSince(time.Now(), opts.Range)
		}
		sess.Begin(opts.Source, false)
		n := svc.ReadEvents(context.Background(), opts.Source, from, to, newestFirst, sess.HistorySink())
		return readDoneMsg{count: n}
	}
}

// subscribeCmd starts live events for the source
func (m Model) subscribeCmd() tea.Cmd {
	sess, svc, source := m.sess, m.reader, m.opts.Source
	return func() tea.Msg {
		if !source.IsChannel() {
			return tailMsg{err: "live events are only available for channels"}
		}
		if !svc.SubscribeEvents(source, sess.LiveSink()) {
			return tailMsg{err: "cannot subscribe to " + source.Path}
		}
		return tailMsg{on: true}
	}
}

// unsubscribeCmd stops live events. It waits for the delivery goroutine.
func (m Model) unsubscribeCmd() tea.Cmd {
	svc := m.reader
	return func() tea.Msg {
		svc.UnsubscribeEvents()
		return tailMsg{on: false}
	}
}

// errorClearMsg clears the status bar error
type errorClearMsg struct{}

// errorClearDelay is how long an error stays in the status bar
const errorClearDelay = 5 * time.Second

func errorClearCmd() tea.Cmd {
	return tea.Tick(errorClearDelay, func(time.Time) tea.Msg {
		return errorClearMsg{}
	})
}
