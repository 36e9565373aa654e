package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDFile_Acquire(t *testing.T) {
	t.Run("writes and locks", func(t *testing.T) {
		pidPath := filepath.Join(t.TempDir(), "test.pid")

		pf := NewPIDFile(pidPath)
		if err := pf.Acquire(); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer pf.Release()

		pid, err := ReadPID(pidPath)
		if err != nil {
			t.Fatalf("ReadPID failed: %v", err)
		}
		if pid != os.Getpid() {
			t.Errorf("PID = %d, want %d", pid, os.Getpid())
		}
		if !IsLocked(pidPath) {
			t.Error("expected file to be locked")
		}
	})

	t.Run("second acquire fails", func(t *testing.T) {
		pidPath := filepath.Join(t.TempDir(), "test.pid")

		pf1 := NewPIDFile(pidPath)
		if err := pf1.Acquire(); err != nil {
			t.Fatalf("first Acquire failed: %v", err)
		}
		defer pf1.Release()

		pf2 := NewPIDFile(pidPath)
		if err := pf2.Acquire(); err != ErrPIDFileLocked {
			t.Errorf("expected ErrPIDFileLocked, got %v", err)
		}
	})

	t.Run("overwrites stale content", func(t *testing.T) {
		pidPath := filepath.Join(t.TempDir(), "test.pid")
		if err := os.WriteFile(pidPath, []byte("999999999999\n"), 0600); err != nil {
			t.Fatal(err)
		}

		pf := NewPIDFile(pidPath)
		if err := pf.Acquire(); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer pf.Release()

		pid, err := ReadPID(pidPath)
		if err != nil || pid != os.Getpid() {
			t.Errorf("ReadPID = %d, %v", pid, err)
		}
	})
}

func TestPIDFile_Release(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	pf := NewPIDFile(pidPath)
	if err := pf.Release(); err != nil {
		t.Errorf("Release before Acquire: %v", err)
	}
	if err := pf.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := pf.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should be removed")
	}
	if IsLocked(pidPath) {
		t.Error("released file should not be locked")
	}
}

func TestReadPID_Invalid(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	if err := os.WriteFile(pidPath, []byte("not-a-pid"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(pidPath); err == nil {
		t.Error("expected error for invalid PID")
	}
	if _, err := ReadPID(filepath.Join(t.TempDir(), "missing.pid")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProcessExists(t *testing.T) {
	if !ProcessExists(os.Getpid()) {
		t.Error("current process should exist")
	}
	if ProcessExists(0) || ProcessExists(-5) {
		t.Error("non-positive PIDs should not exist")
	}
}
