package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charliek/eventlook/internal/api"
	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
)

func sampleItem() domain.EventItem {
	return domain.EventItem{
		RecordID:    12,
		TimeCreated: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		Level:       domain.LevelError,
		EventID:     1000,
		Provider:    "Application Error",
		MachineName: "web-01",
		Channel:     "Application",
		Message:     "Faulting application\r\nname: app.exe\r\n",
	}
}

func TestLogPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	NewLogPrinter(&buf, false).Print(sampleItem())

	out := buf.String()
	if strings.Contains(out, "\033[") {
		t.Errorf("expected no color on a non-terminal, got %q", out)
	}
	if strings.Contains(out, "\r") {
		t.Errorf("expected CRLF normalized, got %q", out)
	}
	ts := sampleItem().TimeCreated.Local().Format("2006-01-02 15:04:05")
	want := ts + " Error       Application Error [1000] Faulting application\nname: app.exe\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestLogPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPrinter(&buf, true)
	p.Print(sampleItem())
	p.Print(sampleItem())

	got := lines(buf.String())
	if len(got) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(got))
	}
	var e api.EventResponse
	if err := json.Unmarshal([]byte(got[0]), &e); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if e.RecordID != 12 || e.Level != "Error" || e.Channel != "Application" || e.TimeCreated != "2026-03-01T08:30:00Z" {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestLevelColor(t *testing.T) {
	if got := levelColor("Error"); got != constants.LevelColors[domain.LevelError] {
		t.Errorf("unexpected error color %q", got)
	}
	if got := levelColor("Critical"); got != constants.LevelColors[domain.LevelCritical] {
		t.Errorf("unexpected critical color %q", got)
	}
	if got := levelColor("Level(42)"); got != "" {
		t.Errorf("expected no color for an unknown level, got %q", got)
	}
}
