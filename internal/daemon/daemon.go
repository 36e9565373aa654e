package daemon

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"syscall"
)

// EnvVar marks the re-executed background server process
const EnvVar = "_EVENTLOOK_DAEMON"

// IsChild returns true in the background server process
func IsChild() bool {
	return os.Getenv(EnvVar) == "1"
}

// Spawn re-executes the current binary with args as a background process in
// its own session. Its stdout and stderr go to the log file in d. Returns
// the child PID; the caller decides whether to exit.
func Spawn(d Dir, args []string) (int, error) {
	if err := d.Ensure(); err != nil {
		return 0, err
	}
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("getting executable path: %w", err)
	}

	logFile, err := os.OpenFile(d.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return 0, fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(executable, args...)
	cmd.Env = append(os.Environ(), EnvVar+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting background server: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

// FindAvailablePort asks the OS for a free TCP port on host
func FindAvailablePort(host string) (int, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("finding available port: %w", err)
	}
	defer listener.Close()

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected address type: %T", listener.Addr())
	}
	return tcpAddr.Port, nil
}

// Running returns the state of the server running for d.
// Returns ErrNotRunning if there is none.
//
// The check is best effort: the server may stop right after it returns.
func Running(d Dir) (*State, error) {
	state, err := LoadState(d)
	if err == ErrStateNotFound {
		return nil, ErrNotRunning
	}
	if err != nil {
		return nil, err
	}
	if !IsLocked(d.PIDPath()) && !ProcessExists(state.PID) {
		return nil, ErrNotRunning
	}
	return state, nil
}

// CleanupStale removes state left by a server that is no longer running.
// Returns ErrAlreadyRunning if one is.
func CleanupStale(d Dir) error {
	if IsLocked(d.PIDPath()) {
		return ErrAlreadyRunning
	}
	state, err := LoadState(d)
	if err == ErrStateNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if ProcessExists(state.PID) {
		return ErrAlreadyRunning
	}
	return d.Cleanup()
}
