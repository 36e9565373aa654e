package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/charliek/eventlook/internal/domain"
)

// fileWatcher pushes records appended to a channel file after it was opened.
// It watches the channel's directory so a removed or rotated channel file is
// picked up again when it is recreated.
type fileWatcher struct {
	path      string
	fsw       *fsnotify.Watcher
	file      *os.File // nil while the channel file is gone
	reader    *bufio.Reader
	offset    int64
	partial   []byte
	reconnect time.Duration
	out       chan Notification
	done      chan struct{}
	stopped   chan struct{}
	once      sync.Once
	logger    *slog.Logger
}

// newFileWatcher starts watching path from its current end
func newFileWatcher(path string, bufferSize int, reconnect time.Duration, logger *slog.Logger) (*fileWatcher, error) {
	path = filepath.Clean(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ClassifyFSError(err)
	}
	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: seeking %s: %v", domain.ErrProviderFault, path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: creating watcher: %v", domain.ErrProviderFault, err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		f.Close()
		return nil, fmt.Errorf("%w: watching %s: %v", domain.ErrProviderFault, path, err)
	}

	w := &fileWatcher{
		path:      path,
		fsw:       fsw,
		file:      f,
		reader:    bufio.NewReader(f),
		offset:    offset,
		reconnect: reconnect,
		out:       make(chan Notification, bufferSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		logger:    logger,
	}
	go w.run()
	return w, nil
}

// Notifications returns the channel of pushed records. It is closed when the
// watcher stops.
func (w *fileWatcher) Notifications() <-chan Notification {
	return w.out
}

// Close stops the watcher and waits for its goroutine to exit
func (w *fileWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		<-w.stopped
		w.detach()
	})
	return err
}

func (w *fileWatcher) run() {
	defer close(w.stopped)
	defer close(w.out)

	var (
		retry  *time.Timer
		retryC <-chan time.Time
	)
	stopRetry := func() {
		if retry != nil {
			retry.Stop()
			retry, retryC = nil, nil
		}
	}
	defer stopRetry()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				stopRetry()
				if !w.reopen() {
					return
				}
			case ev.Has(fsnotify.Write):
				if !w.reopen() {
					return
				}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				if w.file == nil {
					continue
				}
				if !w.drain() {
					return
				}
				w.detach()
				w.logger.Info("channel file removed, waiting for it to return", "path", w.path)
				stopRetry()
				retry = time.NewTimer(w.reconnect)
				retryC = retry.C
			}

		case <-retryC:
			retry, retryC = nil, nil
			if _, err := os.Stat(w.path); err == nil {
				if !w.reopen() {
					return
				}
				continue
			}
			w.send(Notification{Err: fmt.Errorf("%w: channel file %s was removed", domain.ErrSourceNotFound, w.path)})
			return

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("channel watcher error", "path", w.path, "error", err)
		}
	}
}

// reopen follows the file currently at path and drains it. A file replaced
// under the same name is read from its beginning once the old one is
// drained. It returns false if the watcher was closed while sending.
func (w *fileWatcher) reopen() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		// Gone again; a later Create brings it back
		return true
	}
	if w.file != nil {
		if cur, err := w.file.Stat(); err == nil && os.SameFile(cur, info) {
			return w.drain()
		}
		if !w.drain() {
			return false
		}
		w.detach()
	}

	f, err := os.Open(w.path)
	if err != nil {
		w.logger.Warn("reopening channel file", "path", w.path, "error", err)
		return true
	}
	w.file = f
	w.offset = 0
	w.partial = nil
	w.reader.Reset(f)
	w.logger.Info("following recreated channel file", "path", w.path)
	return w.drain()
}

// detach closes the followed file
func (w *fileWatcher) detach() {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	w.partial = nil
}

// drain reads every complete line appended since the last drain.
// It returns false if the watcher was closed while sending.
func (w *fileWatcher) drain() bool {
	if w.file == nil {
		return true
	}
	w.rewindIfTruncated()

	for {
		chunk, err := w.reader.ReadBytes('\n')
		w.offset += int64(len(chunk))
		if len(chunk) > 0 {
			if chunk[len(chunk)-1] != '\n' {
				w.partial = append(w.partial, chunk...)
			} else {
				line := chunk
				if len(w.partial) > 0 {
					line = append(w.partial, chunk...)
					w.partial = nil
				}
				if n, ok := parseNotification(line); ok && !w.send(n) {
					return false
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				w.logger.Warn("channel read error", "path", w.path, "error", err)
			}
			return true
		}
	}
}

// rewindIfTruncated restarts from the beginning when the file shrank
func (w *fileWatcher) rewindIfTruncated() {
	info, err := w.file.Stat()
	if err != nil || info.Size() >= w.offset {
		return
	}
	w.logger.Info("channel file truncated, rewinding", "path", w.path)
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return
	}
	w.offset = 0
	w.partial = nil
	w.reader.Reset(w.file)
}

func (w *fileWatcher) send(n Notification) bool {
	select {
	case w.out <- n:
		return true
	case <-w.done:
		return false
	}
}

// parseNotification turns one written line into a notification.
// Blank lines produce nothing.
func parseNotification(line []byte) (Notification, bool) {
	raw := bytes.TrimSpace(line)
	if len(raw) == 0 {
		return Notification{}, false
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Notification{Err: fmt.Errorf("%w: %v", domain.ErrDecode, err)}, true
	}
	return Notification{Record: &rec}, true
}
