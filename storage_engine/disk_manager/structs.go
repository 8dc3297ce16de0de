package diskmanager

import (
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// ############################################# FILE DESCRIPTOR ###########################################

// FileDescriptor represents an open file managed by the disk manager
type FileDescriptor struct {
	FileID     uint32
	FilePath   string
	File       *os.File
	NextPageID int64 // Next local page number to hand out; local numbers start at 1
	mu         sync.RWMutex
}

// ############################################# DISK MANAGER #############################################

// DiskManager manages all disk I/O operations and file handles
type DiskManager struct {
	files      map[uint32]*FileDescriptor // fileID -> file descriptor
	nextFileID uint32
	pageCache  *ristretto.Cache[int64, []byte] // clean page images keyed by global page id
	mu         sync.RWMutex
}
