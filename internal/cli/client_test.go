package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charliek/eventlook/internal/api"
	"github.com/charliek/eventlook/internal/config"
	"github.com/charliek/eventlook/internal/daemon"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
	"github.com/charliek/eventlook/internal/filter"
)

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("http://localhost:5556/")

	if client.baseURL != "http://localhost:5556" {
		t.Errorf("expected baseURL without trailing slash, got %q", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("expected httpClient to be non-nil")
	}
}

func TestEventsQuery(t *testing.T) {
	params := domain.ReadParams{
		Source:      domain.NewFileSource("/tmp/saved.jsonl"),
		From:        time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		NewestFirst: true,
		Message:     `"access denied" | timeout`,
		Levels:      []domain.Level{domain.LevelCritical, domain.LevelError},
		IDs:         "-4625",
	}

	q := eventsQuery(params)
	checks := map[string]string{
		"source":   "/tmp/saved.jsonl",
		"type":     "file_path",
		"from":     "2026-03-01T08:00:00Z",
		"to":       "",
		"newest":   "true",
		"q":        `"access denied" | timeout`,
		"level":    "Critical,Error",
		"provider": "",
		"id":       "-4625",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("%s: expected %q, got %q", key, want, got)
		}
	}
}

func TestClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "no such channel", Code: domain.ErrCodeSourceNotFound})
	}))
	defer server.Close()

	client := &Client{baseURL: server.URL, token: "secret", httpClient: server.Client()}
	_, err := client.GetChannels()
	if err == nil || err.Error() != "SOURCE_NOT_FOUND: no such channel" {
		t.Errorf("unexpected error: %v", err)
	}
}

// startServer runs the API server over root and returns its client and a
// func that stops it and returns the server's result
func startServer(t *testing.T, root string) (*Client, daemon.Dir, func() error) {
	t.Helper()

	cfg := config.Default()
	cfg.LogRoot = root
	port, err := daemon.FindAvailablePort(cfg.API.Host)
	if err != nil {
		t.Fatal(err)
	}
	cfg.API.Port = port

	d := daemon.StateDir(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, cfg, "", d, &out, nil)
	}()

	client := &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.API.Host, port),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := client.GetStatus(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server did not start: %s", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	var once sync.Once
	var result error
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case result = <-done:
			case <-time.After(5 * time.Second):
				t.Error("server did not stop")
			}
		})
		return result
	}
	t.Cleanup(func() { stop() })
	return client, d, stop
}

func TestServer_RemoteCommands(t *testing.T) {
	root := seedRoot(t)
	client, d, stop := startServer(t, root)

	state, err := daemon.Running(d)
	if err != nil {
		t.Fatalf("expected recorded state: %v", err)
	}
	if state.LogRoot != root || state.Auth {
		t.Errorf("unexpected state %+v", state)
	}

	channels, err := client.GetChannels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(channels.Channels) != 1 || channels.Channels[0] != "Application" {
		t.Errorf("unexpected channels %v", channels.Channels)
	}

	valid, err := client.ValidateSource(domain.NewChannelSource("Missing"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid.Valid {
		t.Error("expected Missing to be invalid")
	}

	out, _, err := execute(t, root, "--addr", client.baseURL, "read", "Application", "--remote", "--json", "-p", "Security", "--oldest-first")
	if err != nil {
		t.Fatalf("remote read: %v", err)
	}
	got := lines(out)
	if len(got) != 2 || !strings.Contains(got[0], `"event_id":4625`) {
		t.Errorf("unexpected remote read:\n%s", out)
	}

	out, _, err = execute(t, root, "--addr", client.baseURL, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Status:   running") || !strings.Contains(out, "Log root: "+root) {
		t.Errorf("unexpected status output:\n%s", out)
	}

	if err := stop(); err != nil {
		t.Errorf("unexpected server error: %v", err)
	}
	if _, err := daemon.Running(d); err != daemon.ErrNotRunning {
		t.Errorf("expected state removed after shutdown, got %v", err)
	}
}

func TestServer_StopCommand(t *testing.T) {
	root := seedRoot(t)
	client, _, stop := startServer(t, root)

	out, _, err := execute(t, root, "--addr", client.baseURL, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if out != "Shutdown initiated\n" {
		t.Errorf("unexpected output %q", out)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := client.GetStatus(); err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server still answering after stop")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err := stop(); err != nil {
		t.Errorf("unexpected server error: %v", err)
	}
}

func TestClient_StreamEvents(t *testing.T) {
	root := seedRoot(t)
	client, _, _ := startServer(t, root)
	store := eventlog.NewStore(eventlog.StoreConfig{Root: root}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Keep appending until the subscription is in place and one arrives
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				store.Append("Application", eventlog.Record{Level: 3, EventID: 2013, Provider: "Srv", Computer: "web-01", Message: "Disk almost full"})
				store.Append("Application", eventlog.Record{Level: 4, EventID: 1, Provider: "Srv", Computer: "web-01", Message: "noise"})
			}
		}
	}()

	var received api.EventResponse
	err := client.StreamEvents(ctx, "Application", filter.Criteria{Message: "disk"}, 0, func(e api.EventResponse) {
		received = e
		cancel()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.EventID != 2013 || received.Message != "Disk almost full" || received.Level != "Warning" {
		t.Errorf("unexpected event %+v", received)
	}
}
