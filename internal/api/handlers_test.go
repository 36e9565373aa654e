package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
)

func get(t *testing.T, s *Server, path string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetStatus(t *testing.T) {
	s, store := newTestServer(t, ServerConfig{})

	rec := get(t, s, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, "v1", resp.APIVersion)
	assert.Equal(t, store.Root(), resp.LogRoot)
	assert.Equal(t, "eventlook.yaml", resp.ConfigFile)
	assert.Empty(t, resp.Hubs)
}

func TestGetChannels(t *testing.T) {
	s, store := newTestServer(t, ServerConfig{})
	_, err := store.Append("Security", eventlog.Record{Provider: "Security", Message: "audit"})
	require.NoError(t, err)

	rec := get(t, s, "/api/v1/channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Application", "Security"}, decode[ChannelListResponse](t, rec).Channels)
}

func TestValidateSource(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{})

	tests := []struct {
		name  string
		query url.Values
		code  int
		valid bool
	}{
		{"known channel", url.Values{"source": {"Application"}}, http.StatusOK, true},
		{"unknown channel", url.Values{"source": {"Nope"}}, http.StatusOK, false},
		{"missing file", url.Values{"path": {"/no/such/file.jsonl"}, "type": {"file"}}, http.StatusOK, false},
		{"missing source", url.Values{}, http.StatusBadRequest, false},
		{"bad type", url.Values{"source": {"Application"}, "type": {"registry"}}, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/v1/sources/validate", tt.query)
			require.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.valid, decode[ValidateResponse](t, rec).Valid)
			}
		})
	}
}

func TestGetComputer(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{})
	path := filepath.Join(t.TempDir(), "saved.jsonl")
	require.NoError(t, eventlog.WriteArchive(path, []domain.EventItem{
		{RecordID: 1, TimeCreated: testBase, Level: domain.LevelInformation, Provider: "p", MachineName: "db-01", Message: "first"},
		{RecordID: 2, TimeCreated: testBase.Add(time.Minute), Level: domain.LevelInformation, Provider: "p", MachineName: "db-02", Message: "last"},
	}))

	rec := get(t, s, "/api/v1/archives/computer", url.Values{"path": {path}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "db-02", decode[ComputerResponse](t, rec).Computer)

	rec = get(t, s, "/api/v1/archives/computer", url.Values{"path": {filepath.Join(t.TempDir(), "none.jsonl")}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[ComputerResponse](t, rec).Computer)

	rec = get(t, s, "/api/v1/archives/computer", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEvents(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{})

	tests := []struct {
		name     string
		query    url.Values
		wantIDs  []int64
		filtered int
	}{
		{"newest first by default", url.Values{}, []int64{5, 4, 3, 2, 1}, 5},
		{"oldest first", url.Values{"newest": {"false"}}, []int64{1, 2, 3, 4, 5}, 5},
		{"message OR groups", url.Values{"q": {"spooler | rebooted"}}, []int64{5, 1}, 2},
		{"quoted phrase", url.Values{"q": {`"failed to log"`}}, []int64{3}, 1},
		{"levels", url.Values{"level": {"error,critical"}}, []int64{5, 2}, 2},
		{"provider", url.Values{"provider": {"security"}}, []int64{4, 3}, 2},
		{"excluded id", url.Values{"id": {"-4625, -41"}}, []int64{4, 2, 1}, 3},
		{"stages combine", url.Values{"provider": {"Security"}, "id": {"4624"}}, []int64{4}, 1},
		{"limit keeps filtered count", url.Values{"limit": {"2"}}, []int64{5, 4}, 5},
		{"range", url.Values{
			"from": {testBase.Format(time.RFC3339)},
			"to":   {testBase.Add(2 * time.Minute).Format(time.RFC3339)},
		}, []int64{3, 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{"source": {"Application"}}
			for k, v := range tt.query {
				q[k] = v
			}
			rec := get(t, s, "/api/v1/events", q)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[EventsResponse](t, rec)
			assert.Empty(t, resp.Error)
			assert.Equal(t, "Application", resp.Source)
			assert.Equal(t, tt.filtered, resp.FilteredCount)

			ids := make([]int64, len(resp.Events))
			for i, e := range resp.Events {
				ids[i] = e.RecordID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGetEvents_RenderedMessage(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{})

	rec := get(t, s, "/api/v1/events", url.Values{"source": {"Application"}, "id": {"7036"}})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[EventsResponse](t, rec)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "The Print Spooler service entered the running state.", resp.Events[0].Message)
	assert.Equal(t, "Information", resp.Events[0].Level)
	assert.Equal(t, "web-01", resp.Events[0].MachineName)
	assert.Equal(t, 5, resp.TotalCount)
}

func TestGetEvents_Archive(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{})
	path := filepath.Join(t.TempDir(), "old.jsonl")
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, eventlog.WriteArchive(path, []domain.EventItem{
		{RecordID: 1, TimeCreated: old, Level: domain.LevelWarning, Provider: "disk", MachineName: "db-01", Message: "disk almost full"},
	}))

	// Archives are unbounded by default, so a 2020 record is still returned
	rec := get(t, s, "/api/v1/events", url.Values{"source": {path}, "type": {"file"}})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[EventsResponse](t, rec)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "file:"+path, resp.Source)
}

func TestGetEvents_Errors(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{})

	tests := []struct {
		name  string
		query url.Values
		code  int
		errc  string
	}{
		{"unknown channel", url.Values{"source": {"Nope"}}, http.StatusNotFound, domain.ErrCodeSourceNotFound},
		{"missing archive", url.Values{"source": {"/no/such.jsonl"}, "type": {"file"}}, http.StatusNotFound, domain.ErrCodeSourceNotFound},
		{"bad from", url.Values{"source": {"Application"}, "from": {"yesterday"}}, http.StatusBadRequest, domain.ErrCodeInvalidTimeRange},
		{"inverted range", url.Values{
			"source": {"Application"},
			"from":   {"2024-01-02T00:00:00Z"},
			"to":     {"2024-01-01T00:00:00Z"},
		}, http.StatusBadRequest, domain.ErrCodeInvalidTimeRange},
		{"bad since", url.Values{"source": {"Application"}, "since": {"-1h"}}, http.StatusBadRequest, domain.ErrCodeInvalidTimeRange},
		{"bad level", url.Values{"source": {"Application"}, "level": {"loud"}}, http.StatusBadRequest, domain.ErrCodeInvalidPattern},
		{"bad id", url.Values{"source": {"Application"}, "id": {"abc"}}, http.StatusBadRequest, domain.ErrCodeInvalidPattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/v1/events", tt.query)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errc, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestShutdown(t *testing.T) {
	store := newTestStore(t)
	done := make(chan struct{})
	h := NewHandlers(store, nil, DefaultReadDefaults(), "", func() { close(done) }, nil)
	s := NewServer(ServerConfig{}, h, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/shutdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[SuccessResponse](t, rec).Success)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown function not called")
	}
}

func TestEventResponse_RoundTrip(t *testing.T) {
	item := domain.EventItem{
		RecordID:    9,
		TimeCreated: testBase,
		Level:       domain.LevelWarning,
		EventID:     4625,
		Provider:    "Security",
		MachineName: "web-01",
		Channel:     "Security",
		Message:     "An account failed to log on.",
	}
	back, err := FromEventResponse(ToEventResponse(item))
	require.NoError(t, err)
	assert.Equal(t, item, back)
}
