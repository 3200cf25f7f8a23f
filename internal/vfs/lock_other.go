//go:build !unix

package vfs

import "os"

// lockExclusive is a no-op on platforms without flock (design §4.7 treats
// the lock as advisory; Windows saves proceed unlocked).
func lockExclusive(f *os.File) func() {
	return func() {}
}
