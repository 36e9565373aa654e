// Package daemon runs the eventlook server in the background and records
// where it listens so client commands can find it.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// StateDirName is the directory, relative to the working directory,
	// holding runtime files
	StateDirName = ".eventlook"

	stateFileName = "eventlook.state"
	pidFileName   = "eventlook.pid"
	logFileName   = "eventlook.log"
)

// Dir is a runtime state directory
type Dir string

// StateDir returns the state directory under base. An empty base means the
// working directory; if that cannot be determined the path stays relative.
func StateDir(base string) Dir {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Dir(StateDirName)
		}
		base = wd
	}
	return Dir(filepath.Join(base, StateDirName))
}

// StatePath returns the path of the state file
func (d Dir) StatePath() string { return filepath.Join(string(d), stateFileName) }

// PIDPath returns the path of the PID file
func (d Dir) PIDPath() string { return filepath.Join(string(d), pidFileName) }

// LogPath returns the path of the server log
func (d Dir) LogPath() string { return filepath.Join(string(d), logFileName) }

// Ensure creates the directory with owner-only permissions
func (d Dir) Ensure() error {
	if err := os.MkdirAll(string(d), 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// Cleanup removes the state and PID files. The log is kept.
func (d Dir) Cleanup() error {
	for _, path := range []string{d.StatePath(), d.PIDPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}
