package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Level is the severity of an event record
type Level int

const (
	LevelLogAlways   Level = 0
	LevelCritical    Level = 1
	LevelError       Level = 2
	LevelWarning     Level = 3
	LevelInformation Level = 4
	LevelVerbose     Level = 5
)

// AllLevels lists the displayable levels, most severe first.
// LogAlways is displayed as Information and is not listed separately.
var AllLevels = []Level{LevelCritical, LevelError, LevelWarning, LevelInformation, LevelVerbose}

// Valid returns true if the level is within the defined range
func (l Level) Valid() bool {
	return l >= LevelLogAlways && l <= LevelVerbose
}

// Display folds LogAlways into Information
func (l Level) Display() Level {
	if l == LevelLogAlways {
		return LevelInformation
	}
	return l
}

// String returns the display name of the level
func (l Level) String() string {
	switch l.Display() {
	case LevelCritical:
		return "Critical"
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	case LevelInformation:
		return "Information"
	case LevelVerbose:
		return "Verbose"
	default:
		return "Level(" + strconv.Itoa(int(l)) + ")"
	}
}

// ParseLevel converts a level name, short form or number to a Level
func ParseLevel(s string) (Level, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "critical", "crit", "crt", "fatal":
		return LevelCritical, true
	case "error", "err", "erro":
		return LevelError, true
	case "warning", "warn", "wrn":
		return LevelWarning, true
	case "information", "info", "inf":
		return LevelInformation, true
	case "verbose", "debug", "trace", "vrb":
		return LevelVerbose, true
	case "logalways", "always":
		return LevelLogAlways, true
	}
	n, err := strconv.Atoi(normalized)
	if err != nil || !Level(n).Valid() {
		return 0, false
	}
	return Level(n), true
}

// MarshalText renders the level name
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts anything ParseLevel accepts
func (l *Level) UnmarshalText(text []byte) error {
	parsed, ok := ParseLevel(string(text))
	if !ok {
		return fmt.Errorf("unknown level %q", string(text))
	}
	*l = parsed
	return nil
}

// EventItem is a normalized snapshot of one record.
// It is created once when a record is decoded and passed by value afterwards.
type EventItem struct {
	RecordID    int64     `json:"record_id"`
	TimeCreated time.Time `json:"time_created"`
	Level       Level     `json:"level"`
	EventID     int       `json:"event_id"`
	Provider    string    `json:"provider"`
	MachineName string    `json:"machine_name"`
	Channel     string    `json:"channel"`
	Message     string    `json:"message"`
}
