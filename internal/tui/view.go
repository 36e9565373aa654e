package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/charliek/eventlook/internal/domain"
)

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.mode == ModeHelp {
		return m.helpView()
	}

	var sb strings.Builder
	sb.WriteString(m.header())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.statusBar())
	return sb.String()
}

// updateViewport renders the visible events into the viewport
func (m *Model) updateViewport() {
	lines := make([]string, len(m.snapshot.View))
	for i, item := range m.snapshot.View {
		lines[i] = formatEvent(item)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

// formatEvent renders one event on a single line
func formatEvent(item domain.EventItem) string {
	ts := item.TimeCreated.Local().Format("2006-01-02 15:04:05")
	level := levelStyle(item.Level).Render(fmt.Sprintf("%-11s", item.Level.String()))
	provider := fmt.Sprintf("%-24s", truncate(item.Provider, 24))
	message, _, _ := strings.Cut(item.Message, "\n")
	message = strings.TrimRight(message, "\r")

	return fmt.Sprintf("%s %s %s %s %s",
		dimStyle.Render(ts),
		level,
		dimStyle.Render(provider),
		fmt.Sprintf("%5d", item.EventID),
		message,
	)
}

// header renders the source line and the level/provider toggles
func (m Model) header() string {
	title := titleStyle.Render("eventlook") + " " + m.opts.Source.String() + "  " + m.readState()

	allowed := m.sess.Level.Levels()
	present := m.sess.Level.Present()
	var levels []string
	for i, level := range domain.AllLevels {
		label := fmt.Sprintf("%d:%s", i+1, level.String())
		switch {
		case len(allowed) > 0 && slices.Contains(allowed, level):
			label = levelStyle(level).Bold(true).Render("[" + label + "]")
		case slices.Contains(present, level):
			label = levelStyle(level).Render(label)
		default:
			label = dimStyle.Render(label)
		}
		levels = append(levels, label)
	}

	provider := m.sess.Provider.Selected()
	if provider == "" {
		provider = "all"
	}
	toggles := strings.Join(levels, " ") + "  " + dimStyle.Render("p:") + provider

	return headerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, toggles))
}

// readState describes the current read
func (m Model) readState() string {
	st := m.snapshot.Status
	switch {
	case st.Error != "":
		return errorStyle.Render(truncate(st.Error, maxErrorDisplayLen))
	case st.Reading:
		return dimStyle.Render(fmt.Sprintf("reading... %d events", st.Read))
	case st.Complete:
		return dimStyle.Render(fmt.Sprintf("%d events in %s", st.Read, st.Elapsed().Round(time.Millisecond)))
	default:
		return ""
	}
}

// statusBar renders the bottom status bar
func (m Model) statusBar() string {
	var left string
	switch m.mode {
	case ModeMessage:
		left = "Message: " + m.textInput.View()
	case ModeID:
		left = "Event ids: " + m.textInput.View()
	default:
		switch {
		case m.lastErr != "":
			left = errorStyle.Render(truncate(m.lastErr, maxErrorDisplayLen))
		case m.snapshot.Status.LiveError != "":
			left = errorStyle.Render("live: " + truncate(m.snapshot.Status.LiveError, maxErrorDisplayLen))
		default:
			left = "? for help"
			if active := m.sess.Chain().Active(); len(active) > 0 {
				left = fmt.Sprintf("Filters: %s (ESC to clear)", strings.Join(active, ", "))
			}
		}
	}

	var indicators []string
	if m.subscribed {
		indicators = append(indicators, "[TAIL]")
	}
	if m.follow {
		indicators = append(indicators, "[FOLLOW]")
	} else {
		indicators = append(indicators, "[PAUSED]")
	}
	order := "newest first"
	if !m.sess.NewestFirst() {
		order = "oldest first"
	}
	right := fmt.Sprintf("%s %s %d/%d events", strings.Join(indicators, " "), order, len(m.snapshot.View), m.snapshot.Total)

	leftWidth := m.width - lipgloss.Width(right) - 4
	if leftWidth < 0 {
		leftWidth = 0
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		statusStyle.Width(leftWidth).Render(left), "  ", statusStyle.Render(right))
}

// helpView renders the help overlay
func (m Model) helpView() string {
	help := `
eventlook - Event Log Viewer

Filtering:
  /          Message filter ("|" separates alternatives, quotes keep phrases)
  i          Event id filter (4624, -4625 excludes)
  1-5        Toggle Critical, Error, Warning, Information, Verbose
  p          Cycle provider
  ESC        Clear all filters

Reading:
  r          Reload
  c          Cancel the running read
  o          Toggle newest/oldest first and reload
  t          Toggle live events (channels only)

Navigation:
  j/↓ k/↑    Scroll
  g/Home     Go to top
  G/End      Go to bottom
  PgUp/PgDn  Half page up/down
  F          Toggle auto-follow of the newest events

Other:
  ?          Toggle help
  q/Ctrl+C   Quit

Press any key to close help...
`
	return helpStyle.Render(help)
}

// truncate shortens s to max runes
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
