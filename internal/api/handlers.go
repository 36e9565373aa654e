package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/live"
	"github.com/charliek/eventlook/internal/reader"
	"github.com/charliek/eventlook/internal/session"
)

// Store is the log facility served by the API
type Store interface {
	eventlog.Provider
	Channels() ([]string, error)
	Root() string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store      Store
	hubs       *live.Manager
	defaults   ReadDefaults
	configFile string
	startedAt  time.Time
	shutdownFn func()
	logger     *slog.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(store Store, hubs *live.Manager, defaults ReadDefaults, configFile string, shutdownFn func(), logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:      store,
		hubs:       hubs,
		defaults:   defaults,
		configFile: configFile,
		startedAt:  time.Now(),
		shutdownFn: shutdownFn,
		logger:     logger,
	}
}

// GetStatus handles GET /api/v1/status
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "running",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		ConfigFile:    h.configFile,
		LogRoot:       h.store.Root(),
		APIVersion:    "v1",
		Hubs:          h.hubs.Stats(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetChannels handles GET /api/v1/channels
func (h *Handlers) GetChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.Channels()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChannelListResponse{Channels: channels})
}

// ValidateSource handles GET /api/v1/sources/validate
func (h *Handlers) ValidateSource(w http.ResponseWriter, r *http.Request) {
	source, err := parseSource(r)
	if err != nil {
		writeError(w, err)
		return
	}
	svc := reader.New(h.store, h.logger)
	writeJSON(w, http.StatusOK, ValidateResponse{
		Path:     source.Path,
		PathType: source.PathType.String(),
		Valid:    svc.IsValidLog(source.Path, source.PathType),
	})
}

// GetComputer handles GET /api/v1/archives/computer
func (h *Handlers) GetComputer(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, fmt.Errorf("%w: path is required", domain.ErrInvalidSource))
		return
	}
	svc := reader.New(h.store, h.logger)
	writeJSON(w, http.StatusOK, ComputerResponse{
		Path:     path,
		Computer: svc.ComputerNameFromArchive(path),
	})
}

// GetEvents handles GET /api/v1/events
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	params, err := parseReadParams(r, h.defaults, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.probe(params.Source); err != nil {
		writeError(w, err)
		return
	}
	limit := parseLimit(r, "limit", constants.DefaultEventLimit, constants.MaxEventLimit)

	sess := session.New(session.Config{MaxEvents: h.defaults.MaxEvents, NewestFirst: params.NewestFirst}, h.logger)
	if err := sess.ApplyCriteria(filter.CriteriaFromParams(params)); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DefaultRequestTimeout)
	defer cancel()

	svc := reader.New(h.store, h.logger)
	sess.Begin(params.Source, false)
	total := svc.ReadEvents(ctx, params.Source, params.From, params.To, params.NewestFirst, sess.HistorySink())

	snap := sess.Snapshot()
	view := snap.View
	filtered := len(view)
	if len(view) > limit {
		view = view[:limit]
	}

	writeJSON(w, http.StatusOK, EventsResponse{
		Source:        params.Source.String(),
		Events:        ToEventResponses(view),
		FilteredCount: filtered,
		TotalCount:    total,
		Error:         snap.Status.Error,
	})
}

// Shutdown handles POST /api/v1/shutdown
func (h *Handlers) Shutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})

	go func() {
		time.Sleep(100 * time.Millisecond) // let the response complete
		if h.shutdownFn != nil {
			h.shutdownFn()
		}
	}()
}

// probe checks a source before any response is written
func (h *Handlers) probe(source domain.LogSource) error {
	if source.IsChannel() {
		return h.store.ChannelConfig(source.Path)
	}
	return h.store.ArchiveInfo(source.Path)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "an internal error occurred"
	code := domain.ErrorCode(err)

	switch {
	case errors.Is(err, domain.ErrSourceNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrAccessDenied):
		status = http.StatusForbidden
		message = domain.UserMessage(err)
	case errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrInvalidPattern),
		errors.Is(err, domain.ErrInvalidTimeRange):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrProviderFault), errors.Is(err, domain.ErrDecode):
		status = http.StatusBadGateway
		message = err.Error()
	default:
		// unknown errors are logged but not echoed
		slog.Error("internal error", "error", err)
	}

	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
