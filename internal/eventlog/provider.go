// Package eventlog is the structured log facility: named channels kept as
// JSON-lines files under a log root, standalone archive files (JSON-lines or
// SQLite), and live write notifications for channels.
package eventlog

import (
	"context"
	"time"

	"github.com/charliek/eventlook/internal/domain"
)

// Query scopes a read to a source and a (From, To] time range.
// Zero bounds are unbounded.
type Query struct {
	Source  domain.LogSource
	From    time.Time
	To      time.Time
	Reverse bool
}

// Contains returns true if t falls inside the query range
func (q Query) Contains(t time.Time) bool {
	if !q.From.IsZero() && !t.After(q.From) {
		return false
	}
	if !q.To.IsZero() && t.After(q.To) {
		return false
	}
	return true
}

// Reader yields the records selected by a Query one at a time.
// Next returns io.EOF when the query is exhausted.
type Reader interface {
	Next() (*Record, error)
	Close() error
}

// Notification is one pushed record from a Watcher. Err is set instead of
// Record when the written data could not be parsed.
type Notification struct {
	Record *Record
	Err    error
}

// Watcher pushes newly written records of a channel
type Watcher interface {
	Notifications() <-chan Notification
	Close() error
}

// Provider is the log facility consumed by the reader engine
type Provider interface {
	// Open starts a query. Errors wrap domain.ErrSourceNotFound,
	// domain.ErrAccessDenied or domain.ErrProviderFault.
	Open(ctx context.Context, q Query) (Reader, error)

	// Watch subscribes to records written to a channel from now on
	Watch(ctx context.Context, channel string) (Watcher, error)

	// ChannelConfig checks that a channel name resolves to a channel
	ChannelConfig(name string) error

	// ArchiveInfo checks that a path is a readable archive file
	ArchiveInfo(path string) error
}
