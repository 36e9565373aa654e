package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/reader"
)

// sseWriter writes server-sent events
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// startSSE sets the stream headers and sends the initial comment. It writes
// an error response and returns nil when streaming is not supported.
func startSSE(w http.ResponseWriter) *sseWriter {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "streaming not supported",
			Code:  domain.ErrCodeStreamingNotSupported,
		})
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}
}

// send writes one event. An empty name sends an unnamed data frame.
func (s *sseWriter) send(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if name != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// StreamEvents handles GET /api/v1/events/stream (SSE).
// It sends up to `replay` buffered events and then every new event of the
// channel that matches the filter parameters.
func (h *Handlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = r.URL.Query().Get("source")
	}
	if channel == "" {
		writeError(w, fmt.Errorf("%w: channel is required", domain.ErrInvalidSource))
		return
	}
	criteria, err := parseCriteria(r)
	if err != nil {
		writeError(w, err)
		return
	}

	hub, err := h.hubs.Hub(channel)
	if err != nil {
		writeError(w, err)
		return
	}
	sub, err := hub.Subscribe(criteria)
	if err != nil {
		writeError(w, err)
		return
	}
	defer hub.Unsubscribe(sub.ID())

	replay := parseLimit(r, "replay", 0, constants.DefaultLiveBufferSize)
	var recent []domain.EventItem
	if replay > 0 {
		recent, _, _ = hub.Recent(criteria, replay)
	}

	stream := startSSE(w)
	if stream == nil {
		return
	}

	for _, item := range recent {
		if err := stream.send("", ToEventResponse(item)); err != nil {
			return
		}
	}

	// A slow client loses events at the subscription buffer; a failed write
	// or a disconnect ends the handler and releases the subscription.
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := stream.send("", ToEventResponse(item)); err != nil {
				h.logger.Debug("SSE write error, client likely disconnected", "error", err)
				return
			}
		}
	}
}

// StreamBatches handles GET /api/v1/events/batches (SSE).
// It runs a historical read and sends every progress batch as a "progress"
// event, filtered by the request's criteria. The last frame has
// is_complete set. Disconnecting cancels the read.
func (h *Handlers) StreamBatches(w http.ResponseWriter, r *http.Request) {
	params, err := parseReadParams(r, h.defaults, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.probe(params.Source); err != nil {
		writeError(w, err)
		return
	}
	filters, err := filter.CriteriaFromParams(params).Filters()
	if err != nil {
		writeError(w, err)
		return
	}

	stream := startSSE(w)
	if stream == nil {
		return
	}

	svc := reader.New(h.store, h.logger)
	sink := reader.SinkFunc(func(info domain.ProgressInfo) {
		info.Events = filter.Select(info.Events, filters...)
		if err := stream.send("progress", ToProgressResponse(info)); err != nil {
			svc.Cancel()
		}
	})
	svc.ReadEvents(r.Context(), params.Source, params.From, params.To, params.NewestFirst, sink)
}
