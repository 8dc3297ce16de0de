package indexfile

import (
	heapfile "KestrelDB/heapfile_manager"
	"KestrelDB/storage_engine/access/indexfile_manager/btree"
	"KestrelDB/storage_engine/bufferpool"
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"fmt"
	"os"
)

/*
This file is the main file for the Index File Manager that deals with index files
It shares one disk manager and one buffer pool across every open index

Each indexed attribute of a relation gets its own file, named
"{relation}.{attrByteOffset}". Handles are cached per file; CloseAll flushes
and closes everything on shutdown.
*/

func NewIndexFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool) (*IndexFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}

	return &IndexFileManager{
		baseDir:     baseDir,
		indexes:     make(map[string]*btree.BTreeIndex),
		bufferPool:  bufferPool,
		diskManager: diskManager,
	}, nil
}

// GetOrCreateIndex returns the B+ tree index over (relationName,
// attrByteOffset), opening the existing file or creating it and bulk
// building it from the relation's heap file. Handles are cached, so
// repeated calls are O(1).
func (ifm *IndexFileManager) GetOrCreateIndex(relationName string, attrByteOffset int,
	attrType btree.Datatype, relation *heapfile.HeapFile) (*btree.BTreeIndex, error) {

	indexKey := btree.IndexFileName(relationName, attrByteOffset)

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	if idx, exists := ifm.indexes[indexKey]; exists && idx != nil {
		return idx, nil
	}

	idx, err := btree.OpenBTreeIndex(ifm.baseDir, relationName, attrByteOffset, attrType,
		ifm.bufferPool, ifm.diskManager, relation)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", indexKey, err)
	}

	ifm.indexes[indexKey] = idx
	return idx, nil
}

// CloseIndex closes the index over (relationName, attrByteOffset) and
// removes it from the cache. The index is flushed before closing.
func (ifm *IndexFileManager) CloseIndex(relationName string, attrByteOffset int) {
	indexKey := btree.IndexFileName(relationName, attrByteOffset)

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	idx, exists := ifm.indexes[indexKey]
	if !exists {
		return // not open, nothing to do
	}

	idx.Close()
	delete(ifm.indexes, indexKey)
}

// CloseAll closes all cached indexes and clears the cache.
// Called when shutting down the storage engine.
func (ifm *IndexFileManager) CloseAll() {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	for indexKey, idx := range ifm.indexes {
		idx.Close()
		delete(ifm.indexes, indexKey)
	}
}
