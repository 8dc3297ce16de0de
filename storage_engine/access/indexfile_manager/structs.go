package indexfile

import (
	"KestrelDB/storage_engine/access/indexfile_manager/btree"
	"KestrelDB/storage_engine/bufferpool"
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"sync"
)

type IndexFileManager struct {
	baseDir     string                      // e.g. data/mydb/indexes
	indexes     map[string]*btree.BTreeIndex // index file name → open handle
	bufferPool  *bufferpool.BufferPool
	diskManager *diskmanager.DiskManager
	mu          sync.Mutex
}
