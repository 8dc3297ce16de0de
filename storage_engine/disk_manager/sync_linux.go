//go:build linux

package diskmanager

import (
	"os"

	"golang.org/x/sys/unix"
)

// fdatasync flushes file data without forcing a metadata write. Page writes
// never change the file's metadata except its size, which fdatasync covers.
func fdatasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
