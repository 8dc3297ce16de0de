package diskmanager

import (
	"KestrelDB/storage_engine/page"
	"KestrelDB/types"
	"fmt"
	"os"

	"github.com/dgraph-io/ristretto/v2"
)

/*
This is the main file for the disk manager
It owns:
File descriptors (os.File)
Reading/writing raw bytes at specific offsets (ReadAt, WriteAt)
Page allocation (tracking NextPageID per file)
The globalPageID ↔ (fileID, localPage) mapping

Page ID encoding:
globalPageID = int64(fileID) << 32 | localPageNum
The mapping itself needs no page counter. File ids are handed out by OpenFile
from a per-manager counter in open order, so a page's global id holds only
while its file stays open.

Local page numbers start at 1 and page N lives at byte offset (N-1)*PageSize,
so 0 is never a real page number anywhere; the layers above use 0 as the
"no page" sentinel (sibling pointers, child slots, record ids).

A ristretto cache sits in front of ReadPage holding clean page images; any
WritePage replaces the cached image with the bytes it wrote (if the cache
rejects the new image, the next read comes from disk).

The BufferPool on a hit returns its own frame; on a miss it is the disk
manager that reads (or serves from cache) the page bytes at the offset.
*/

const pageCacheCapacity = 16 << 20 // bytes of page images kept hot

func NewDiskManager() (*DiskManager, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
		NumCounters: 10 * pageCacheCapacity / types.PageSize,
		MaxCost:     pageCacheCapacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}

	return &DiskManager{
		files:      make(map[uint32]*FileDescriptor),
		nextFileID: 1,
		pageCache:  cache,
	}, nil
}

func NewPage(pageID int64, fileID uint32, pageType types.PageType) *page.Page {
	return &page.Page{
		ID:       pageID,
		FileID:   fileID,
		Data:     make([]byte, page.PageSize),
		IsDirty:  false,
		PinCount: 0,
		PageType: pageType,
	}
}

// OpenFile opens or creates a file and returns its file ID
func (dm *DiskManager) OpenFile(filePath string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	// Check if file is already open
	for id, fd := range dm.files {
		if fd.FilePath == filePath {
			return id, nil
		}
	}

	// Open or create the file
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	// Get file size to determine existing pages
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	numPages := stat.Size() / int64(page.PageSize)

	fileID := dm.nextFileID
	dm.nextFileID++

	fd := &FileDescriptor{
		FileID:     fileID,
		FilePath:   filePath,
		File:       file,
		NextPageID: numPages + 1, // pages 1..numPages exist already
	}

	dm.files[fileID] = fd
	return fileID, nil
}

// ReadPage reads a page from disk (or the page cache) into a fresh frame
func (dm *DiskManager) ReadPage(globalPageID int64) (*page.Page, error) {
	dm.mu.RLock()
	fileID := uint32(globalPageID >> 32)
	fd, exists := dm.files[fileID]
	dm.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("file %d not found", fileID)
	}

	localPageID := globalPageID & 0xFFFFFFFF
	if localPageID < 1 {
		return nil, fmt.Errorf("invalid page number %d in file %d", localPageID, fileID)
	}

	pg := NewPage(globalPageID, fileID, types.PageTypeUnknown)

	if cached, ok := dm.pageCache.Get(globalPageID); ok {
		copy(pg.Data, cached)
		return pg, nil
	}

	fd.mu.RLock()
	defer fd.mu.RUnlock()

	if fd.File == nil {
		return nil, fmt.Errorf("file %d is closed", fileID)
	}

	offset := (localPageID - 1) * int64(page.PageSize)
	n, err := fd.File.ReadAt(pg.Data, offset)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("failed to read page %d from file %d: %w", localPageID, fileID, err)
	}

	// Pad with zeros if partial read
	for i := n; i < page.PageSize; i++ {
		pg.Data[i] = 0
	}

	cached := make([]byte, page.PageSize)
	copy(cached, pg.Data)
	dm.pageCache.Set(globalPageID, cached, page.PageSize)

	return pg, nil
}

// WritePage writes a page to disk and replaces its cached image
func (dm *DiskManager) WritePage(pg *page.Page) error {
	dm.mu.RLock()
	fd, exists := dm.files[pg.FileID]
	dm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("file %d not found", pg.FileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return fmt.Errorf("file %d is closed", pg.FileID)
	}

	if len(pg.Data) != page.PageSize {
		return fmt.Errorf("page data size %d does not match page size %d", len(pg.Data), page.PageSize)
	}

	localPageID := pg.ID & 0xFFFFFFFF
	if localPageID < 1 {
		return fmt.Errorf("invalid page number %d in file %d", localPageID, pg.FileID)
	}

	offset := (localPageID - 1) * int64(page.PageSize)
	_, err := fd.File.WriteAt(pg.Data, offset)
	if err != nil {
		return fmt.Errorf("failed to write page %d to file %d: %w", localPageID, pg.FileID, err)
	}

	// Replace the stale cached image. Del before Set so a rejected Set
	// leaves a miss, never an old image.
	dm.pageCache.Del(pg.ID)
	cached := make([]byte, page.PageSize)
	copy(cached, pg.Data)
	dm.pageCache.Set(pg.ID, cached, page.PageSize)
	// Drain the cache's apply buffer so no reader can see the old image
	// once this write has returned.
	dm.pageCache.Wait()

	// Update next page ID if we wrote beyond current end
	if localPageID >= fd.NextPageID {
		fd.NextPageID = localPageID + 1
	}

	pg.IsDirty = false
	return nil
}

// AllocatePage reserves the next available page number for a file and
// updates internal counters. It does NOT write anything to disk — that is
// the BufferPool's responsibility when it later flushes the dirty page.
func (dm *DiskManager) AllocatePage(fileID uint32, pageType types.PageType) (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return 0, fmt.Errorf("file %d not found", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return 0, fmt.Errorf("file %d is closed", fileID)
	}

	localPageNum := fd.NextPageID
	fd.NextPageID++

	return int64(fileID)<<32 | localPageNum, nil
}

// GetGlobalPageID converts a (fileID, local page number) pair to a global page id
func (dm *DiskManager) GetGlobalPageID(fileID uint32, localPageNum int64) int64 {
	return int64(fileID)<<32 | localPageNum
}

// GetLocalPageID extracts the local page number from a global page id
func (dm *DiskManager) GetLocalPageID(globalPageID int64) int64 {
	return globalPageID & 0xFFFFFFFF
}

// NumPages returns the number of pages currently allocated in a file
func (dm *DiskManager) NumPages(fileID uint32) (int64, error) {
	dm.mu.RLock()
	fd, exists := dm.files[fileID]
	dm.mu.RUnlock()

	if !exists {
		return 0, fmt.Errorf("file %d not found", fileID)
	}

	fd.mu.RLock()
	defer fd.mu.RUnlock()
	return fd.NextPageID - 1, nil
}

// Sync flushes all file buffers to stable storage
func (dm *DiskManager) Sync() error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	for _, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fdatasync(fd.File); err != nil {
				fd.mu.Unlock()
				return fmt.Errorf("failed to sync file %d: %w", fd.FileID, err)
			}
		}
		fd.mu.Unlock()
	}

	return nil
}

// SyncFile flushes a single file's buffers to stable storage
func (dm *DiskManager) SyncFile(fileID uint32) error {
	dm.mu.RLock()
	fd, exists := dm.files[fileID]
	dm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("file %d not found", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return fmt.Errorf("file %d is closed", fileID)
	}

	if err := fdatasync(fd.File); err != nil {
		return fmt.Errorf("failed to sync file %d: %w", fileID, err)
	}
	return nil
}

// CloseFile closes a specific file
func (dm *DiskManager) CloseFile(fileID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return fmt.Errorf("file %d not found", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return nil // Already closed
	}

	if err := fdatasync(fd.File); err != nil {
		return fmt.Errorf("failed to sync before close: %w", err)
	}

	if err := fd.File.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	fd.File = nil
	delete(dm.files, fileID)

	return nil
}

// CloseAll closes all open files
func (dm *DiskManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var lastErr error
	for fileID, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fdatasync(fd.File); err != nil {
				lastErr = err
			}
			if err := fd.File.Close(); err != nil {
				lastErr = err
			}
			fd.File = nil
		}
		fd.mu.Unlock()
		delete(dm.files, fileID)
	}

	dm.pageCache.Clear()

	return lastErr
}

// GetFileDescriptor returns the file descriptor for a given file ID
func (dm *DiskManager) GetFileDescriptor(fileID uint32) (*FileDescriptor, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return nil, fmt.Errorf("file %d not found", fileID)
	}

	return fd, nil
}

// TotalPages returns the total number of pages across all files
func (dm *DiskManager) TotalPages() int64 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	total := int64(0)
	for _, fd := range dm.files {
		total += fd.NextPageID - 1
	}
	return total
}
