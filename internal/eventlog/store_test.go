package eventlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/eventlook/internal/domain"
)

var testBase = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(StoreConfig{Root: t.TempDir()}, nil)
}

// seedChannel appends n records one minute apart starting at testBase+1m
func seedChannel(t *testing.T, s *Store, channel string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := s.Append(channel, Record{
			TimeCreated: testBase.Add(time.Duration(i) * time.Minute).Format(time.RFC3339Nano),
			Level:       4,
			EventID:     1000 + i,
			Provider:    "TestProvider",
			Computer:    "HOST1",
			Message:     "event %1",
			Data:        []string{fmt.Sprint(i)},
		})
		require.NoError(t, err)
	}
}

func readAll(t *testing.T, r Reader) []*Record {
	t.Helper()
	defer r.Close()
	var out []*Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestStore_AppendAssignsIDs(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Append("Application", Record{Message: "one"})
	require.NoError(t, err)
	second, err := s.Append("Application", Record{Message: "two"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.RecordID)
	assert.Equal(t, int64(2), second.RecordID)
	assert.Equal(t, "Application", second.Channel)
	assert.NotEmpty(t, second.TimeCreated)
}

func TestStore_AppendRejectsBadTime(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Append("Application", Record{TimeCreated: "noon"})
	assert.ErrorIs(t, err, domain.ErrInvalidSource)
}

func TestStore_Channels(t *testing.T) {
	s := newTestStore(t)
	seedChannel(t, s, "System", 1)
	seedChannel(t, s, "Application", 1)
	seedChannel(t, s, "Microsoft-Windows-Foo/Operational", 1)

	channels, err := s.Channels()
	require.NoError(t, err)
	assert.Equal(t, []string{"Application", "Microsoft-Windows-Foo/Operational", "System"}, channels)

	assert.FileExists(t, filepath.Join(s.Root(), "Microsoft-Windows-Foo%4Operational.jsonl"))
}

func TestStore_OpenForwardAndReverse(t *testing.T) {
	s := newTestStore(t)
	seedChannel(t, s, "Application", 5)

	q := Query{Source: domain.NewChannelSource("Application")}
	r, err := s.Open(context.Background(), q)
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 5)
	assert.Equal(t, int64(1), recs[0].RecordID)
	assert.Equal(t, int64(5), recs[4].RecordID)

	q.Reverse = true
	r, err = s.Open(context.Background(), q)
	require.NoError(t, err)
	recs = readAll(t, r)
	require.Len(t, recs, 5)
	assert.Equal(t, int64(5), recs[0].RecordID)
	assert.Equal(t, int64(1), recs[4].RecordID)
}

func TestStore_OpenReverseCancelled(t *testing.T) {
	s := newTestStore(t)
	seedChannel(t, s, "Application", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Open(ctx, Query{Source: domain.NewChannelSource("Application"), Reverse: true})
	assert.ErrorIs(t, err, domain.ErrCancelled)

	// Forward reads stream and leave cancellation to the caller's loop
	r, err := s.Open(ctx, Query{Source: domain.NewChannelSource("Application")})
	require.NoError(t, err)
	require.NoError(t, r.Close())
}

func TestStore_OpenTimeRange(t *testing.T) {
	s := newTestStore(t)
	seedChannel(t, s, "Application", 5)

	// (1m, 3m] selects records 2 and 3
	q := Query{
		Source: domain.NewChannelSource("Application"),
		From:   testBase.Add(time.Minute),
		To:     testBase.Add(3 * time.Minute),
	}
	r, err := s.Open(context.Background(), q)
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(2), recs[0].RecordID)
	assert.Equal(t, int64(3), recs[1].RecordID)
}

func TestStore_OpenMissingChannel(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Open(context.Background(), Query{Source: domain.NewChannelSource("Nope")})
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = s.Open(context.Background(), Query{Source: domain.NewFileSource(filepath.Join(t.TempDir(), "x.jsonl"))})
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestStore_OpenMalformedLine(t *testing.T) {
	s := newTestStore(t)
	seedChannel(t, s, "Application", 2)

	f, err := os.OpenFile(s.ChannelPath("Application"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := s.Open(context.Background(), Query{Source: domain.NewChannelSource("Application")})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, domain.ErrProviderFault)
}

func TestStore_OpenAccessDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	s := newTestStore(t)
	seedChannel(t, s, "Security", 1)
	require.NoError(t, os.Chmod(s.ChannelPath("Security"), 0000))

	_, err := s.Open(context.Background(), Query{Source: domain.NewChannelSource("Security")})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestStore_ChannelConfigAndArchiveInfo(t *testing.T) {
	s := newTestStore(t)
	seedChannel(t, s, "Application", 1)

	assert.NoError(t, s.ChannelConfig("Application"))
	assert.ErrorIs(t, s.ChannelConfig("Missing"), domain.ErrSourceNotFound)
	assert.Error(t, s.ChannelConfig(""))

	// A channel file is also a valid JSONL archive
	assert.NoError(t, s.ArchiveInfo(s.ChannelPath("Application")))

	junk := filepath.Join(t.TempDir(), "junk.jsonl")
	require.NoError(t, os.WriteFile(junk, []byte("hello world\n"), 0644))
	assert.ErrorIs(t, s.ArchiveInfo(junk), domain.ErrProviderFault)

	empty := filepath.Join(t.TempDir(), "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	assert.NoError(t, s.ArchiveInfo(empty))

	assert.Error(t, s.ArchiveInfo(t.TempDir()))
}
