package daemon

import "errors"

var (
	// ErrStateNotFound is returned when no state file exists
	ErrStateNotFound = errors.New("state file not found")
	// ErrAlreadyRunning is returned when a server already runs for the directory
	ErrAlreadyRunning = errors.New("eventlook server is already running")
	// ErrNotRunning is returned when no server runs for the directory
	ErrNotRunning = errors.New("eventlook server is not running")
	// ErrPIDFileLocked is returned when the PID file is locked by another process
	ErrPIDFileLocked = errors.New("PID file is locked by another process")
)
