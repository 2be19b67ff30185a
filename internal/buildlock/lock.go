package buildlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/unifypy/unifypy/internal/logger"
)

// Filename is the lock file name inside the cache root directory.
const Filename = ".lock"

// ErrHeld is returned when another live process holds the project lock.
var ErrHeld = errors.New("project is locked by another process")

// Lock is an acquired advisory lock on one project.
type Lock struct {
	path string
}

// Acquire takes the advisory lock under the given cache root directory.
// A lock file owned by a process that no longer runs is treated as stale
// and reclaimed. The directory must already exist.
func Acquire(ctx context.Context, rootDir string) (*Lock, error) {
	path := filepath.Join(rootDir, Filename)

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, err = fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
				file.Close()
				os.Remove(path)

				return nil, fmt.Errorf("write lock file: %w", err)
			}

			if err = file.Close(); err != nil {
				os.Remove(path)

				return nil, fmt.Errorf("close lock file: %w", err)
			}

			return &Lock{path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		pid, readErr := readOwner(path)
		if readErr != nil {
			// Unreadable or garbled lock files block nobody.
			logger.WarnKV(ctx, "Removing unreadable lock file", "path", path, "error", readErr)

			if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				return nil, fmt.Errorf("remove unreadable lock file: %w", removeErr)
			}

			continue
		}

		if processAlive(pid) {
			return nil, fmt.Errorf("%w (pid %d)", ErrHeld, pid)
		}

		logger.WarnKV(ctx, "Reclaiming stale lock from dead process", "path", path, "pid", pid)

		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock file: %w", removeErr)
		}
	}

	return nil, fmt.Errorf("%w (contended)", ErrHeld)
}

// Release removes the lock file. Releasing an already released lock is a
// no-op.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	err := os.Remove(l.path)
	l.path = ""

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}

	return nil
}

// readOwner parses the owning PID out of the lock file.
func readOwner(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid lock file contents %q", strings.TrimSpace(string(data)))
	}

	return pid, nil
}

// processAlive reports whether a process with the given PID is running.
func processAlive(pid int) bool {
	if pid == os.Getpid() {
		return true
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		// Process table unavailable, assume the owner is alive rather
		// than clobber a possibly live lock.
		return true
	}

	return process != nil
}
