package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// AcquireLock creates a lock file containing the current PID.
// Returns ErrSessionLocked if the file is held by another live process.
func AcquireLock(lockPath string) error {
	if isLockedByOther(lockPath) {
		return ErrSessionLocked
	}
	return os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// ReleaseLock removes the lock file. Best-effort: ignores ENOENT.
func ReleaseLock(lockPath string) error {
	err := os.Remove(lockPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsLocked reports whether another live process holds the lock.
// Stale locks (dead PID) are removed.
func IsLocked(lockPath string) bool {
	return isLockedByOther(lockPath)
}

func isLockedByOther(lockPath string) bool {
	pid := lockOwnerPID(lockPath)
	if pid == 0 {
		if _, err := os.Stat(lockPath); err == nil {
			// Corrupt lock file
			os.Remove(lockPath)
		}
		return false
	}

	if pid == os.Getpid() {
		return false
	}

	if !isProcessAlive(pid) {
		os.Remove(lockPath)
		return false
	}

	return true
}

func isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks existence without sending anything
	return proc.Signal(syscall.Signal(0)) == nil
}

// lockOwnerPID returns the PID from a lock file, or 0 if there is none.
func lockOwnerPID(lockPath string) int {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// LockInfo describes who holds a lock, or "" when it is free.
func LockInfo(lockPath string) string {
	pid := lockOwnerPID(lockPath)
	if pid == 0 {
		return ""
	}
	return fmt.Sprintf("locked by PID %d", pid)
}
