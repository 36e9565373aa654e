// Package reader reads event records from a log provider in cancellable
// batches and pushes live records from a channel subscription.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
)

// BatchSize is the number of events per non-terminal progress batch
const BatchSize = constants.ReadBatchSize

// Service owns at most one in-flight read and one live subscription.
// Callers should not overlap reads on the same Service.
type Service struct {
	provider eventlog.Provider
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc // cancels the in-flight read, nil when idle
	readSeq uint64
	sub     *subscription

	// subMu serializes SubscribeEvents and UnsubscribeEvents
	subMu sync.Mutex
}

// New creates a Service reading from provider
func New(provider eventlog.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		logger:   logger,
	}
}

// ReadEvents reads the records of source in (from, to] and reports them to
// sink in batches of BatchSize followed by exactly one terminal batch. It
// blocks until the read finishes; run it on its own goroutine to keep the
// caller responsive. Cancellation comes from Cancel or ctx. Faults never
// escape: they end the read and are reported in the terminal batch's
// ErrorMessage. The returned count includes every record delivered.
func (s *Service) ReadEvents(ctx context.Context, source domain.LogSource, from, to time.Time, newestFirst bool, sink Sink) int {
	ctx, done := s.beginRead(ctx)
	defer done()

	started := time.Now()
	s.logger.Debug("begin reading", "source", source.String(), "from", from, "to", to, "newest_first", newestFirst)

	batch := make([]domain.EventItem, 0, BatchSize)
	count := 0
	isFirst := true

	readErr := func() error {
		r, err := s.provider.Open(ctx, eventlog.Query{
			Source:  source,
			From:    from.UTC(),
			To:      to.UTC(),
			Reverse: newestFirst,
		})
		if err != nil {
			return err
		}
		defer r.Close()

		for {
			if ctx.Err() != nil {
				return domain.ErrCancelled
			}
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			item, err := rec.Decode()
			if err != nil {
				return err
			}

			batch = append(batch, item)
			count++
			if count%BatchSize == 0 {
				if ctx.Err() != nil {
					return domain.ErrCancelled
				}
				sink.Report(domain.ProgressInfo{Events: batch, IsFirst: isFirst})
				isFirst = false
				batch = make([]domain.EventItem, 0, BatchSize)
			}
		}
	}()

	if readErr != nil && !errors.Is(readErr, domain.ErrCancelled) && ctx.Err() != nil {
		// A provider aborted by the cancelled context reports a fault; the
		// caller asked for cancellation, so report that instead.
		readErr = fmt.Errorf("%w: %v", domain.ErrCancelled, readErr)
	}

	sink.Report(domain.ProgressInfo{
		Events:       batch,
		IsComplete:   true,
		IsFirst:      isFirst,
		ErrorMessage: domain.UserMessage(readErr),
	})

	if readErr != nil {
		s.logger.Info("read ended with error", "source", source.String(), "count", count, "error", readErr)
	}
	s.logger.Debug("end reading", "source", source.String(), "count", count, "elapsed", time.Since(started))
	return count
}

// beginRead installs a fresh cancellation for a new read. The returned func
// releases it unless a later read already replaced it.
func (s *Service) beginRead(parent context.Context) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	s.readSeq++
	seq := s.readSeq
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if s.readSeq == seq {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}
}

// Cancel requests cancellation of the in-flight read. It is a no-op when no
// read is active.
func (s *Service) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		s.logger.Debug("cancel requested")
		cancel()
	}
}

// Reading returns true while a read is in flight
func (s *Service) Reading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// IsValidLog probes whether a channel name or archive path can be read
// without reading it. Any fault yields false.
func (s *Service) IsValidLog(path string, pathType domain.PathType) bool {
	var err error
	switch pathType {
	case domain.PathTypeLogName:
		err = s.provider.ChannelConfig(path)
	case domain.PathTypeFilePath:
		err = s.provider.ArchiveInfo(path)
	default:
		return false
	}
	if err != nil {
		s.logger.Debug("invalid log source", "path", path, "path_type", pathType, "error", err)
		return false
	}
	return true
}

// ComputerNameFromArchive returns the machine name of the most recent record
// in an archive file, or "" if the archive is empty or cannot be read.
func (s *Service) ComputerNameFromArchive(path string) string {
	r, err := s.provider.Open(context.Background(), eventlog.Query{
		Source:  domain.NewFileSource(path),
		Reverse: true,
	})
	if err != nil {
		s.logger.Debug("cannot open archive", "path", path, "error", err)
		return ""
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		return ""
	}
	return rec.Computer
}
