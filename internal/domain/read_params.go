package domain

import (
	"fmt"
	"time"
)

// ReadParams holds parameters for a historical read.
// This type is shared between the CLI, API and TUI packages.
//
// Fields:
//   - Source: the channel or archive to read.
//   - From: exclusive lower bound. Zero means unbounded.
//   - To: inclusive upper bound. Zero means unbounded.
//   - NewestFirst: read in reverse chronological order.
//   - Message: message filter criteria (OR-groups separated by '|').
//   - Levels: allowed levels. Empty means all.
//   - Provider: provider name to keep. Empty means all.
//   - IDs: event id criteria ("4624, -4625"). Empty means all.
type ReadParams struct {
	Source      LogSource
	From        time.Time
	To          time.Time
	NewestFirst bool
	Message     string
	Levels      []Level
	Provider    string
	IDs         string
}

// RangeSince returns a (now-d, now] range in UTC
func RangeSince(now time.Time, d time.Duration) (from, to time.Time) {
	to = now.UTC()
	return to.Add(-d), to
}

// Validate checks the time range
func (p ReadParams) Validate() error {
	if !p.From.IsZero() && !p.To.IsZero() && !p.From.Before(p.To) {
		return fmt.Errorf("%w: from %s is not before to %s", ErrInvalidTimeRange,
			p.From.Format(time.RFC3339), p.To.Format(time.RFC3339))
	}
	return nil
}
