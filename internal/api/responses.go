package api

import (
	"time"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/live"
)

// StatusResponse represents the response for GET /status
type StatusResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	ConfigFile    string       `json:"config_file,omitempty"`
	LogRoot       string       `json:"log_root"`
	APIVersion    string       `json:"api_version"`
	Hubs          []live.Stats `json:"hubs"`
}

// ChannelListResponse represents the response for GET /channels
type ChannelListResponse struct {
	Channels []string `json:"channels"`
}

// ValidateResponse represents the response for GET /sources/validate
type ValidateResponse struct {
	Path     string `json:"path"`
	PathType string `json:"path_type"`
	Valid    bool   `json:"valid"`
}

// ComputerResponse represents the response for GET /archives/computer
type ComputerResponse struct {
	Path     string `json:"path"`
	Computer string `json:"computer"`
}

// EventsResponse represents the response for GET /events
type EventsResponse struct {
	Source        string          `json:"source"`
	Events        []EventResponse `json:"events"`
	FilteredCount int             `json:"filtered_count"`
	TotalCount    int             `json:"total_count"`
	Error         string          `json:"error,omitempty"`
}

// EventResponse represents a single event
type EventResponse struct {
	RecordID    int64  `json:"record_id"`
	TimeCreated string `json:"time_created"`
	Level       string `json:"level"`
	EventID     int    `json:"event_id"`
	Provider    string `json:"provider"`
	MachineName string `json:"machine_name"`
	Channel     string `json:"channel,omitempty"`
	Message     string `json:"message"`
}

// ProgressResponse is one SSE frame of GET /events/batches
type ProgressResponse struct {
	Events     []EventResponse `json:"events"`
	IsFirst    bool            `json:"is_first"`
	IsComplete bool            `json:"is_complete"`
	Error      string          `json:"error,omitempty"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToEventResponse converts domain.EventItem to EventResponse
func ToEventResponse(item domain.EventItem) EventResponse {
	return EventResponse{
		RecordID:    item.RecordID,
		TimeCreated: item.TimeCreated.UTC().Format(time.RFC3339Nano),
		Level:       item.Level.String(),
		EventID:     item.EventID,
		Provider:    item.Provider,
		MachineName: item.MachineName,
		Channel:     item.Channel,
		Message:     item.Message,
	}
}

// ToEventResponses converts a slice of events
func ToEventResponses(items []domain.EventItem) []EventResponse {
	out := make([]EventResponse, len(items))
	for i, item := range items {
		out[i] = ToEventResponse(item)
	}
	return out
}

// ToProgressResponse converts a reader delivery
func ToProgressResponse(info domain.ProgressInfo) ProgressResponse {
	return ProgressResponse{
		Events:     ToEventResponses(info.Events),
		IsFirst:    info.IsFirst,
		IsComplete: info.IsComplete,
		Error:      info.ErrorMessage,
	}
}

// FromEventResponse converts an API event back to a domain event
func FromEventResponse(e EventResponse) (domain.EventItem, error) {
	t, err := time.Parse(time.RFC3339Nano, e.TimeCreated)
	if err != nil {
		return domain.EventItem{}, err
	}
	level, _ := domain.ParseLevel(e.Level)
	return domain.EventItem{
		RecordID:    e.RecordID,
		TimeCreated: t.UTC(),
		Level:       level,
		EventID:     e.EventID,
		Provider:    e.Provider,
		MachineName: e.MachineName,
		Channel:     e.Channel,
		Message:     e.Message,
	}, nil
}
