package eventlog

import (
	"context"

	"github.com/charliek/eventlook/internal/domain"
)

// ArchiveWriter writes records to a new archive file
type ArchiveWriter interface {
	Write(rec Record) error
	Close() error
}

// CreateArchive creates (or truncates) an archive file. The format follows
// the extension: .db, .sqlite and .sqlite3 are SQLite, anything else JSON lines.
func CreateArchive(path string) (ArchiveWriter, error) {
	if isSQLitePath(path) {
		return createSQLite(path)
	}
	return createJSONL(path)
}

// WriteArchive writes items to a new archive file
func WriteArchive(path string, items []domain.EventItem) error {
	w, err := CreateArchive(path)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := w.Write(RecordFromItem(item)); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// openArchive opens a standalone archive file for a query
func openArchive(ctx context.Context, path string, q Query) (Reader, error) {
	if isSQLitePath(path) {
		return openSQLite(ctx, path, q)
	}
	return openJSONL(ctx, path, q)
}

// probeArchive checks that a path is a readable archive
func probeArchive(path string) error {
	if isSQLitePath(path) {
		return probeSQLite(path)
	}
	return probeJSONL(path)
}
