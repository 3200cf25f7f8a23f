//go:build unix

package vfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive takes an advisory exclusive flock on f, matching the
// teacher's habit of reaching for golang.org/x/sys/unix for low-level OS
// calls (filewatcher_unix.go's inotify wrapper) rather than hand-rolling a
// syscall. The returned func always succeeds; a lock failure is silently
// ignored, same as the original treating PDB/save lock contention as best
// effort rather than fatal.
func lockExclusive(f *os.File) func() {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return func() {}
	}
	return func() {
		unix.Flock(fd, unix.LOCK_UN)
	}
}
