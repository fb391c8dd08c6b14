package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// managePIDFile writes the current process id to path and, if lock is
// true, holds an exclusive flock on it for the lifetime of the
// process. The returned cleanup function releases the lock, closes
// the file and removes it; callers defer it immediately.
func managePIDFile(path string, lock bool) (func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open PID file: %w", err)
	}

	if lock {
		if lockErr := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); lockErr != nil {
			holder := describeHolder(file)
			file.Close()
			if errors.Is(lockErr, syscall.EWOULDBLOCK) {
				return nil, fmt.Errorf("another instance is already running (%s)", holder)
			}
			return nil, fmt.Errorf("lock failed: %w", lockErr)
		}
	}

	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("cannot truncate PID file: %w", err)
	}
	if _, err := file.WriteAt([]byte(fmt.Sprintf("%d\n", os.Getpid())), 0); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("cannot write PID: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("cannot sync PID file: %w", err)
	}

	cleanup := func() {
		if lock {
			syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		}
		file.Close()
		os.Remove(path)
	}
	return cleanup, nil
}

// describeHolder reads whatever pid is currently recorded in an
// already-open, lock-contended PID file, for the error message. It
// never fails the caller's flow — an unreadable or corrupted file just
// yields a vaguer message.
func describeHolder(file *os.File) string {
	data := make([]byte, 32)
	n, _ := file.ReadAt(data, 0)
	pidStr := strings.TrimSpace(string(data[:n]))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return "pid unknown"
	}
	if proc, err := os.FindProcess(pid); err == nil {
		if sigErr := proc.Signal(syscall.Signal(0)); sigErr == nil {
			return fmt.Sprintf("pid %d", pid)
		}
	}
	return fmt.Sprintf("pid %d, possibly stale", pid)
}
