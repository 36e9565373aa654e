package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
)

const (
	channelExt = ".jsonl"

	// channelSlash replaces '/' in channel names on disk
	channelSlash = "%4"

	// tailProbeSize is how much of a channel file is read to find its last record
	tailProbeSize = 64 * 1024
)

// StoreConfig holds configuration for a Store
type StoreConfig struct {
	Root           string        // directory holding channel files
	WatchBuffer    int           // notification buffer per watcher
	WatchReconnect time.Duration // wait for a removed channel file to come back
}

// Store is the file-backed log facility. It implements Provider.
type Store struct {
	root           string
	watchBuffer    int
	watchReconnect time.Duration
	logger         *slog.Logger

	// appendMu serializes Append so record ids stay sequential
	appendMu sync.Mutex
}

// NewStore creates a Store rooted at config.Root
func NewStore(config StoreConfig, logger *slog.Logger) *Store {
	if config.Root == "" {
		config.Root = constants.DefaultLogRoot
	}
	if config.WatchBuffer <= 0 {
		config.WatchBuffer = constants.DefaultWatchBuffer
	}
	if config.WatchReconnect <= 0 {
		config.WatchReconnect = constants.WatchReconnectTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:           config.Root,
		watchBuffer:    config.WatchBuffer,
		watchReconnect: config.WatchReconnect,
		logger:         logger,
	}
}

// Root returns the channel directory
func (s *Store) Root() string {
	return s.root
}

// ChannelPath returns the file backing a channel name
func (s *Store) ChannelPath(name string) string {
	return filepath.Join(s.root, strings.ReplaceAll(name, "/", channelSlash)+channelExt)
}

// Channels lists the channel names present under the root, sorted
func (s *Store) Channels() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(s.root), "*"+channelExt, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := strings.TrimSuffix(m, channelExt)
		names = append(names, strings.ReplaceAll(base, channelSlash, "/"))
	}
	sort.Strings(names)
	return names, nil
}

// Open starts a query against a channel or an archive file
func (s *Store) Open(ctx context.Context, q Query) (Reader, error) {
	if q.Source.Path == "" {
		return nil, fmt.Errorf("%w: empty path", domain.ErrSourceNotFound)
	}
	if q.Source.IsChannel() {
		return openJSONL(ctx, s.ChannelPath(q.Source.Path), q)
	}
	return openArchive(ctx, q.Source.Path, q)
}

// Watch subscribes to records appended to a channel after this call
func (s *Store) Watch(ctx context.Context, channel string) (Watcher, error) {
	if err := s.ChannelConfig(channel); err != nil {
		return nil, err
	}
	w, err := newFileWatcher(s.ChannelPath(channel), s.watchBuffer, s.watchReconnect, s.logger)
	if err != nil {
		return nil, err
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				w.Close()
			case <-w.stopped:
			}
		}()
	}
	return w, nil
}

// ChannelConfig checks that the channel file exists and is a regular file
func (s *Store) ChannelConfig(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty channel name", domain.ErrSourceNotFound)
	}
	info, err := os.Stat(s.ChannelPath(name))
	if err != nil {
		return domain.ClassifyFSError(err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: channel %s is not a regular file", domain.ErrProviderFault, name)
	}
	return nil
}

// ArchiveInfo checks that path is a readable archive file
func (s *Store) ArchiveInfo(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return domain.ClassifyFSError(err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", domain.ErrProviderFault, path)
	}
	return probeArchive(path)
}

// Append writes one record to a channel, creating the channel file if needed.
// A zero RecordID is replaced by the next id in the channel, an empty
// TimeCreated by the current time, and Channel is always set to name.
func (s *Store) Append(name string, rec Record) (Record, error) {
	if name == "" {
		return Record{}, fmt.Errorf("%w: empty channel name", domain.ErrInvalidSource)
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return Record{}, domain.ClassifyFSError(err)
	}

	path := s.ChannelPath(name)
	rec.Channel = name
	if rec.TimeCreated == "" {
		rec.TimeCreated = time.Now().UTC().Format(time.RFC3339Nano)
	} else if _, err := rec.Time(); err != nil {
		return Record{}, fmt.Errorf("%w: invalid time_created %q", domain.ErrInvalidSource, rec.TimeCreated)
	}
	if rec.RecordID == 0 {
		last, err := lastRecordID(path)
		if err != nil {
			return Record{}, err
		}
		rec.RecordID = last + 1
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encoding record: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return Record{}, domain.ClassifyFSError(err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return Record{}, domain.ClassifyFSError(err)
	}
	if err := f.Close(); err != nil {
		return Record{}, domain.ClassifyFSError(err)
	}
	return rec, nil
}

// lastRecordID reads the tail of a channel file and returns the id of its
// last complete record. A missing or empty file yields 0.
func lastRecordID(path string) (int64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.ClassifyFSError(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, domain.ClassifyFSError(err)
	}
	start := info.Size() - tailProbeSize
	if start < 0 {
		start = 0
	}
	buf := make([]byte, info.Size()-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return 0, domain.ClassifyFSError(err)
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		var rec Record
		if err := json.Unmarshal([]byte(strings.TrimSpace(lines[i])), &rec); err == nil {
			return rec.RecordID, nil
		}
	}
	return 0, nil
}
