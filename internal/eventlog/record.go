package eventlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/eventlook/internal/domain"
)

// Record is one raw record as the log facility stores it.
// Message is a template whose %1..%n markers are filled from Data.
type Record struct {
	RecordID    int64    `json:"record_id"`
	TimeCreated string   `json:"time_created"`
	Level       int      `json:"level"`
	EventID     int      `json:"event_id"`
	Provider    string   `json:"provider"`
	Computer    string   `json:"computer"`
	Channel     string   `json:"channel,omitempty"`
	Message     string   `json:"message"`
	Data        []string `json:"data,omitempty"`
}

// Time parses TimeCreated as RFC3339 and returns it in UTC
func (r *Record) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(r.TimeCreated))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Decode normalizes the record into an EventItem
func (r *Record) Decode() (domain.EventItem, error) {
	t, err := r.Time()
	if err != nil {
		return domain.EventItem{}, fmt.Errorf("%w: record %d: time %q: %v", domain.ErrDecode, r.RecordID, r.TimeCreated, err)
	}
	level := domain.Level(r.Level)
	if !level.Valid() {
		return domain.EventItem{}, fmt.Errorf("%w: record %d: level %d out of range", domain.ErrDecode, r.RecordID, r.Level)
	}

	return domain.EventItem{
		RecordID:    r.RecordID,
		TimeCreated: t,
		Level:       level,
		EventID:     r.EventID,
		Provider:    r.Provider,
		MachineName: r.Computer,
		Channel:     r.Channel,
		Message:     RenderMessage(r.Message, r.Data),
	}, nil
}

// RecordFromItem converts a decoded item back to a raw record with an
// already rendered message. Used when exporting to an archive.
func RecordFromItem(item domain.EventItem) Record {
	return Record{
		RecordID:    item.RecordID,
		TimeCreated: item.TimeCreated.UTC().Format(time.RFC3339Nano),
		Level:       int(item.Level),
		EventID:     item.EventID,
		Provider:    item.Provider,
		Computer:    item.MachineName,
		Channel:     item.Channel,
		Message:     escapePercent(item.Message),
	}
}

// RenderMessage fills %n insertion markers in template with data[n-1].
// "%%" renders a single percent sign. Markers without a matching insertion
// string are kept verbatim. An empty template renders the data joined by spaces.
func RenderMessage(template string, data []string) string {
	if template == "" {
		return strings.Join(data, " ")
	}
	if !strings.Contains(template, "%") {
		return template
	}

	var sb strings.Builder
	sb.Grow(len(template))
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' || i+1 >= len(template) {
			sb.WriteByte(c)
			continue
		}
		if template[i+1] == '%' {
			sb.WriteByte('%')
			i++
			continue
		}
		j := i + 1
		for j < len(template) && template[j] >= '0' && template[j] <= '9' {
			j++
		}
		if j == i+1 {
			sb.WriteByte(c)
			continue
		}
		n, err := strconv.Atoi(template[i+1 : j])
		if err != nil || n < 1 || n > len(data) {
			sb.WriteString(template[i:j])
		} else {
			sb.WriteString(data[n-1])
		}
		i = j - 1
	}
	return sb.String()
}

func escapePercent(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
