package bufferpool

import (
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"KestrelDB/storage_engine/page"
	"KestrelDB/types"
	"fmt"
)

/*
This file is the main file of the bufferpool
The buffer pool works on LRU based caching
and holds access to the disk manager for flushing the pages in the cache onto the disk
similarly if a page is not found in the cache, the disk manager loads the page from disk and it is added for future access

Pages are identified by globalPageID. A pinned page (PinCount > 0) is never
evicted, so a frame handed out by FetchPage/NewPage stays valid until the
caller's matching UnpinPage.
*/

// NewBufferPool creates a new buffer pool with the given capacity
func NewBufferPool(capacity int, diskManager *diskmanager.DiskManager) *BufferPool {
	return &BufferPool{
		pages:       make(map[int64]*page.Page, capacity),
		capacity:    capacity,
		diskManager: diskManager,
		accessOrder: make([]int64, 0, capacity),
	}
}

// FetchPage retrieves a page from the buffer pool, loading from disk if necessary
// Returns the page with pin count incremented
func (bp *BufferPool) FetchPage(pageID int64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	// Check if page is in buffer pool
	if pg, exists := bp.pages[pageID]; exists {
		// Update LRU access order
		bp.updateAccessOrder(pageID)
		pg.Lock()
		pg.PinCount++
		pg.Unlock()
		return pg, nil
	}

	// Page not in buffer pool - load from disk
	if bp.diskManager == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	pg, err := bp.diskManager.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d from disk: %w", pageID, err)
	}

	// Add to buffer pool (may trigger eviction)
	if err := bp.addPage(pg); err != nil {
		return nil, fmt.Errorf("failed to add page to buffer pool: %w", err)
	}

	// Pin the page
	pg.Lock()
	pg.PinCount++
	pg.Unlock()

	return pg, nil
}

// NewPage allocates a new page in the given file and returns a pinned,
// zeroed frame for it. NewPage asks the DiskManager for the next available
// page number, constructs a blank Page struct entirely in RAM, and marks it
// dirty so the BufferPool will eventually flush it.
func (bp *BufferPool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	pageID, err := bp.diskManager.AllocatePage(fileID, pageType)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate page: %w", err)
	}

	pg := diskmanager.NewPage(pageID, fileID, pageType)
	pg.IsDirty = true // New pages are dirty by default

	pg.Lock()
	pg.PinCount++
	pg.Unlock()

	if err := bp.addPage(pg); err != nil {
		pg.Lock()
		pg.PinCount--
		pg.Unlock()
		return nil, fmt.Errorf("failed to add new page to buffer pool: %w", err)
	}

	return pg, nil
}

// UnpinPage decrements the pin count for a page
func (bp *BufferPool) UnpinPage(pageID int64, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	pg.Lock()
	defer pg.Unlock()

	if pg.PinCount > 0 {
		pg.PinCount--
	}

	if isDirty {
		pg.IsDirty = true
	}

	return nil
}

// FlushPage writes a specific page to disk if dirty
func (bp *BufferPool) FlushPage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	return bp.flushLocked(pg)
}

// FlushFile writes all dirty pages belonging to one file to disk
func (bp *BufferPool) FlushFile(fileID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return fmt.Errorf("disk manager not set")
	}

	flushed := 0
	for pageID, pg := range bp.pages {
		if pg.FileID != fileID {
			continue
		}
		if err := bp.flushLocked(pg); err != nil {
			return fmt.Errorf("failed to flush page %d: %w", pageID, err)
		}
		flushed++
	}

	fmt.Printf("[BufferPool] FlushFile fileID=%d pages=%d\n", fileID, flushed)
	return nil
}

// FlushAllPages writes all dirty pages to disk
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return fmt.Errorf("disk manager not set")
	}

	for pageID, pg := range bp.pages {
		if err := bp.flushLocked(pg); err != nil {
			return fmt.Errorf("failed to flush page %d: %w", pageID, err)
		}
	}

	return nil
}

// DropFile flushes and then removes every page of a file from the pool.
// Called when an index file is closed, so no frame of the closed file stays
// in the pool.
func (bp *BufferPool) DropFile(fileID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageID, pg := range bp.pages {
		if pg.FileID != fileID {
			continue
		}
		pg.Lock()
		if pg.PinCount > 0 {
			pg.Unlock()
			return fmt.Errorf("cannot drop pinned page %d of file %d", pageID, fileID)
		}
		pg.Unlock()
		if err := bp.flushLocked(pg); err != nil {
			return fmt.Errorf("failed to flush page %d: %w", pageID, err)
		}
		delete(bp.pages, pageID)
		bp.removeFromAccessOrder(pageID)
	}

	return nil
}

// flushLocked writes one page if dirty. Assumes bp.mu is held.
func (bp *BufferPool) flushLocked(pg *page.Page) error {
	pg.Lock()
	defer pg.Unlock()

	if !pg.IsDirty {
		return nil
	}

	if err := bp.diskManager.WritePage(pg); err != nil {
		return err
	}

	pg.IsDirty = false
	return nil
}

// addPage adds a page to the buffer pool, evicting if necessary
// Assumes lock is already held
func (bp *BufferPool) addPage(pg *page.Page) error {
	// If page already in pool, just update access order
	if _, exists := bp.pages[pg.ID]; exists {
		bp.updateAccessOrder(pg.ID)
		return nil
	}

	// If at capacity, evict LRU page
	if len(bp.pages) >= bp.capacity {
		if err := bp.evictLRU(); err != nil {
			return fmt.Errorf("failed to evict page: %w", err)
		}
	}

	// Add page to pool
	bp.pages[pg.ID] = pg
	bp.updateAccessOrder(pg.ID)

	return nil
}

// evictLRU evicts the least recently used unpinned page
// Assumes lock is already held
func (bp *BufferPool) evictLRU() error {
	// Find first unpinned page in access order (LRU)
	for i := 0; i < len(bp.accessOrder); i++ {
		pageID := bp.accessOrder[i]
		pg, exists := bp.pages[pageID]

		if !exists {
			// Remove from access order if page doesn't exist
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			i--
			continue
		}

		pg.Lock()
		pinCount := pg.PinCount
		isDirty := pg.IsDirty

		// Skip pinned pages
		if pinCount > 0 {
			pg.Unlock()
			continue
		}

		fmt.Printf("[BufferPool] EVICT pageID=%d dirty=%v\n", pageID, isDirty)
		// Flush if dirty
		if isDirty && bp.diskManager != nil {
			if err := bp.diskManager.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("failed to write page %d during eviction: %w", pageID, err)
			}
			pg.IsDirty = false
		}
		pg.Unlock()

		// Evict the page
		delete(bp.pages, pageID)
		bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
		return nil
	}

	return fmt.Errorf("all pages are pinned, cannot evict")
}

// updateAccessOrder moves a page to the end of access order (most recently used)
// Assumes lock is already held
func (bp *BufferPool) updateAccessOrder(pageID int64) {
	bp.removeFromAccessOrder(pageID)
	bp.accessOrder = append(bp.accessOrder, pageID)
}

// removeFromAccessOrder drops a page from the access order if present
// Assumes lock is already held
func (bp *BufferPool) removeFromAccessOrder(pageID int64) {
	for i, id := range bp.accessOrder {
		if id == pageID {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
}
