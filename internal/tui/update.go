package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/session"
)

// nearEdgeThreshold is the scroll percentage (0.0-1.0) at which the viewport
// counts as being at the newest edge for auto-follow purposes.
const nearEdgeThreshold = 0.98

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
		m.updateViewport()

	case SnapshotMsg:
		m.setSnapshot(session.Snapshot(msg))

	case readDoneMsg:
		m.reading = false
		m.setSnapshot(m.sess.Snapshot())
		if m.reloadPending {
			m.reloadPending = false
			return m.startRead()
		}
		if m.tail && !m.subscribed {
			cmds = append(cmds, m.subscribeCmd())
		}

	case tailMsg:
		m.subscribed = msg.on
		if msg.err != "" {
			m.tail = false
			cmds = append(cmds, m.showError(msg.err))
		}

	case errorClearMsg:
		m.lastErr = ""
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeMessage:
		return m.handleMessageKey(msg)
	case ModeID:
		return m.handleIDKey(msg)
	case ModeHelp:
		switch msg.String() {
		case "esc", "?", "q", "enter":
			m.mode = ModeNormal
		}
		return m, nil
	}

	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.mode = ModeHelp

	case "/":
		m.mode = ModeMessage
		m.textInput.Placeholder = `disk "access denied" | timeout`
		m.textInput.SetValue(m.sess.Message.Text())
		m.textInput.CursorEnd()
		return m, m.textInput.Focus()

	case "i":
		m.mode = ModeID
		m.textInput.Placeholder = "4624, -4625"
		m.textInput.SetValue(m.sess.ID.Text())
		m.textInput.CursorEnd()
		return m, m.textInput.Focus()

	case "1", "2", "3", "4", "5":
		m.sess.Level.Toggle(domain.AllLevels[key[0]-'1'])
		m.setSnapshot(m.sess.Snapshot())

	case "p":
		m.sess.Provider.Cycle()
		m.setSnapshot(m.sess.Snapshot())

	case "esc":
		m.sess.Chain().ClearAll()
		m.setSnapshot(m.sess.Snapshot())

	case "r":
		return m.startRead()

	case "c":
		m.reloadPending = false
		m.reader.Cancel()

	case "o":
		m.sess.SetNewestFirst(!m.sess.NewestFirst())
		return m.startRead()

	case "t":
		if m.tail {
			m.tail = false
			return m, m.unsubscribeCmd()
		}
		m.tail = true
		if m.reading {
			return m, nil
		}
		return m, m.subscribeCmd()

	default:
		m.handleNavigationKey(key)
	}
	return m, nil
}

// startRead begins a read, or queues one behind the running read
func (m Model) startRead() (tea.Model, tea.Cmd) {
	if m.reading {
		m.reloadPending = true
		m.reader.Cancel()
		return m, nil
	}
	m.reading = true
	return m, m.readCmd()
}

// handleMessageKey edits the message criteria; the view follows every keystroke
func (m Model) handleMessageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.mode = ModeNormal
		m.textInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	if err := m.sess.Message.SetText(m.textInput.Value()); err != nil {
		return m, tea.Batch(cmd, m.showError(err.Error()))
	}
	m.setSnapshot(m.sess.Snapshot())
	return m, cmd
}

// handleIDKey edits the event id criteria, applied on enter
func (m Model) handleIDKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.textInput.Blur()
		return m, nil

	case "enter":
		if err := m.sess.ID.SetText(m.textInput.Value()); err != nil {
			return m, m.showError(err.Error())
		}
		m.mode = ModeNormal
		m.textInput.Blur()
		m.setSnapshot(m.sess.Snapshot())
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// handleNavigationKey handles scrolling. The newest edge is the top when
// reading newest first and the bottom otherwise.
func (m *Model) handleNavigationKey(key string) {
	switch key {
	case "up", "k":
		m.viewport.ScrollUp(1)
	case "down", "j":
		m.viewport.ScrollDown(1)
	case "pgup":
		m.viewport.HalfViewUp()
	case "pgdown":
		m.viewport.HalfViewDown()
	case "home", "g":
		m.viewport.GotoTop()
	case "end", "G":
		m.viewport.GotoBottom()
	case "F":
		m.follow = !m.follow
	default:
		return
	}
	if key != "F" {
		m.follow = m.atNewestEdge()
	}
	if m.follow {
		m.gotoNewest()
	}
}

func (m *Model) showError(msg string) tea.Cmd {
	m.lastErr = msg
	return errorClearCmd()
}

// handleWindowSize handles window resize messages
func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	footerHeight := 2

	viewportHeight := msg.Height - headerHeight - footerHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.viewport.YPosition = headerHeight
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
}

// setSnapshot replaces the displayed events
func (m *Model) setSnapshot(snap session.Snapshot) {
	follow := m.follow || m.atNewestEdge()
	m.snapshot = snap
	m.updateViewport()
	if follow {
		m.follow = true
		m.gotoNewest()
	}
}

func (m *Model) atNewestEdge() bool {
	if !m.ready {
		return true
	}
	if m.sess.NewestFirst() {
		return m.viewport.AtTop()
	}
	return m.viewport.AtBottom() || m.viewport.ScrollPercent() >= nearEdgeThreshold
}

func (m *Model) gotoNewest() {
	if m.sess.NewestFirst() {
		m.viewport.GotoTop()
	} else {
		m.viewport.GotoBottom()
	}
}
