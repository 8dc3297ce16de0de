//go:build !linux

package diskmanager

import "os"

func fdatasync(f *os.File) error {
	return f.Sync()
}
