package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// State describes a running server.
// The server writes it once at startup; clients only read it.
type State struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	Auth       bool      `json:"auth"`
	LogRoot    string    `json:"log_root"`
	ConfigFile string    `json:"config_file,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// Addr returns the server's base URL
func (s *State) Addr() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

// Validate checks the fields a client needs
func (s *State) Validate() error {
	switch {
	case s.PID <= 0:
		return fmt.Errorf("invalid PID: %d", s.PID)
	case s.Port < 1 || s.Port > 65535:
		return fmt.Errorf("invalid port: %d", s.Port)
	case s.Host == "":
		return errors.New("host cannot be empty")
	case s.LogRoot == "":
		return errors.New("log root cannot be empty")
	}
	return nil
}

// Write stores the state in d
func (s *State) Write(d Dir) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := d.Ensure(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	f, err := os.OpenFile(d.StatePath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening state file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return f.Sync()
}

// LoadState reads the state stored in d
func LoadState(d Dir) (*State, error) {
	data, err := os.ReadFile(d.StatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	return &state, nil
}
