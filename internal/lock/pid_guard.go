// Package lock keeps two repoback runs from using one backup directory at once.
//
// The guard is a PID file inside the directory. A file left by a process
// that no longer exists is treated as stale and replaced.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFileName is the name of the PID file in the backup directory.
const PIDFileName = ".repoback.pid"

// PIDGuard guards one backup directory.
type PIDGuard struct {
	dir string
}

// NewPIDGuard creates a guard for dir.
func NewPIDGuard(dir string) *PIDGuard {
	return &PIDGuard{dir: dir}
}

func (g *PIDGuard) pidFilePath() string {
	return filepath.Join(g.dir, PIDFileName)
}

// Check reports whether another live process holds the directory.
// Stale or unreadable PID files are removed.
func (g *PIDGuard) Check() error {
	pidFile := g.pidFilePath()

	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		_ = os.Remove(pidFile)
		return nil
	}

	if pid != os.Getpid() && processExists(pid) {
		return &AlreadyRunningError{Dir: g.dir, PID: pid}
	}

	_ = os.Remove(pidFile)
	return nil
}

// Acquire claims the directory for this process, creating it if needed.
func (g *PIDGuard) Acquire() error {
	if err := g.Check(); err != nil {
		return err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	f, err := os.OpenFile(g.pidFilePath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		// Another process won the race between Check and create.
		return g.Check()
	}
	if err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// Release removes the PID file if this process owns it.
func (g *PIDGuard) Release() {
	data, err := os.ReadFile(g.pidFilePath())
	if err != nil {
		return
	}
	if strings.TrimSpace(string(data)) == strconv.Itoa(os.Getpid()) {
		_ = os.Remove(g.pidFilePath())
	}
}

// AlreadyRunningError indicates another process is using the directory.
type AlreadyRunningError struct {
	Dir string
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("backup directory %s is in use by pid %d", e.Dir, e.PID)
}

// processExists checks if a process with the given PID exists.
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds. We need to send signal 0 to check.
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
