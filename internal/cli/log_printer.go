package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/charliek/eventlook/internal/api"
	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
)

// LogPrinter writes events one per line, colored by level, or as JSON lines
type LogPrinter struct {
	w     io.Writer
	color bool
	json  bool
	enc   *json.Encoder
}

// NewLogPrinter creates a printer on w. Color is only used on a terminal.
func NewLogPrinter(w io.Writer, jsonOutput bool) *LogPrinter {
	return &LogPrinter{
		w:     w,
		color: !jsonOutput && isTerminal(w),
		json:  jsonOutput,
		enc:   json.NewEncoder(w),
	}
}

// Print writes one event
func (lp *LogPrinter) Print(item domain.EventItem) {
	lp.PrintAPI(api.ToEventResponse(item))
}

// PrintAPI writes one event received from the API
func (lp *LogPrinter) PrintAPI(e api.EventResponse) {
	if lp.json {
		if err := lp.enc.Encode(e); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to encode event: %v\n", err)
		}
		return
	}

	ts := e.TimeCreated
	if t, err := api.FromEventResponse(e); err == nil {
		ts = t.TimeCreated.Local().Format("2006-01-02 15:04:05")
	}
	message := strings.ReplaceAll(strings.TrimRight(e.Message, "\r\n"), "\r\n", "\n")

	if !lp.color {
		fmt.Fprintf(lp.w, "%s %-11s %s [%d] %s\n", ts, e.Level, e.Provider, e.EventID, message)
		return
	}
	fmt.Fprintf(lp.w, "%s%s%s %s%-11s%s %s [%d] %s\n",
		constants.ColorDim, ts, constants.ColorReset,
		levelColor(e.Level), e.Level, constants.ColorReset,
		e.Provider, e.EventID, message)
}

// levelColor returns the terminal color for a level name
func levelColor(name string) string {
	level, ok := domain.ParseLevel(name)
	if !ok || int(level) >= len(constants.LevelColors) {
		return ""
	}
	return constants.LevelColors[level]
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
