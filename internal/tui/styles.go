package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/charliek/eventlook/internal/domain"
)

// Colors
var (
	// Level colors
	criticalColor    = lipgloss.Color("13") // Magenta
	errorLevelColor  = lipgloss.Color("9")  // Red
	warningColor     = lipgloss.Color("11") // Yellow
	informationColor = lipgloss.Color("14") // Cyan
	verboseColor     = lipgloss.Color("8")  // Gray

	// UI colors
	headerBg   = lipgloss.Color("235")
	statusBg   = lipgloss.Color("236")
	helpBg     = lipgloss.Color("234")
	errorColor = lipgloss.Color("9")
	dimColor   = lipgloss.Color("8")
)

// Styles
var (
	levelStyles = map[domain.Level]lipgloss.Style{
		domain.LevelCritical:    lipgloss.NewStyle().Foreground(criticalColor).Bold(true),
		domain.LevelError:       lipgloss.NewStyle().Foreground(errorLevelColor),
		domain.LevelWarning:     lipgloss.NewStyle().Foreground(warningColor),
		domain.LevelInformation: lipgloss.NewStyle().Foreground(informationColor),
		domain.LevelVerbose:     lipgloss.NewStyle().Foreground(verboseColor),
	}

	titleStyle = lipgloss.NewStyle().Bold(true)

	// Header style
	headerStyle = lipgloss.NewStyle().
			Background(headerBg).
			Padding(0, 1)

	// Status bar style
	statusStyle = lipgloss.NewStyle().
			Background(statusBg).
			Padding(0, 1)

	// Help overlay style
	helpStyle = lipgloss.NewStyle().
			Background(helpBg).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	// Error indicator style
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(errorColor).
			Bold(true)

	// Dim style for timestamps
	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// levelStyle returns the style for a level; LogAlways renders as Information
func levelStyle(level domain.Level) lipgloss.Style {
	if s, ok := levelStyles[level.Display()]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
