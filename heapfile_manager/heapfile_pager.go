package heapfile

import (
	"fmt"
	"os"
)

// NewHeapFilePager creates a new disk-based pager for heap file data storage
func NewHeapFilePager(heapPath string) (*HeapFilePager, error) {
	// Open or create the heap data file
	file, err := os.OpenFile(heapPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open heap file %s: %w", heapPath, err)
	}

	// Get file size to determine number of existing pages
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat heap file: %w", err)
	}

	numPages := stat.Size() / int64(PageSize)

	pager := &HeapFilePager{
		file:     file,
		filePath: heapPath,
		pageSize: PageSize,
		nextPage: numPages + 1, // pages 1..numPages exist already
	}

	return pager, nil
}

// ReadPage reads a 4KB page from disk at the given page number
func (p *HeapFilePager) ReadPage(pageNo int64) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.file == nil {
		return nil, fmt.Errorf("pager file is closed")
	}
	if pageNo < 1 {
		return nil, fmt.Errorf("invalid heap page number %d", pageNo)
	}

	pg := make([]byte, p.pageSize)
	offset := (pageNo - 1) * int64(p.pageSize)

	n, err := p.file.ReadAt(pg, offset)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("failed to read page %d: %w", pageNo, err)
	}
	// If partial read, pad with zeros
	for i := n; i < p.pageSize; i++ {
		pg[i] = 0
	}

	return pg, nil
}

// WritePage writes a 4KB page to disk at the given page number
func (p *HeapFilePager) WritePage(pageNo int64, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return fmt.Errorf("pager file is closed")
	}
	if pageNo < 1 {
		return fmt.Errorf("invalid heap page number %d", pageNo)
	}

	if len(data) != p.pageSize {
		return fmt.Errorf("data size %d does not match page size %d", len(data), p.pageSize)
	}

	offset := (pageNo - 1) * int64(p.pageSize)
	if _, err := p.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("failed to write page %d: %w", pageNo, err)
	}

	// update nextPage so TotalPages() reflects newly created pages
	if pageNo >= p.nextPage {
		p.nextPage = pageNo + 1
	}

	return nil
}

// Sync flushes all pending writes to disk
func (p *HeapFilePager) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return fmt.Errorf("pager file is closed")
	}

	return p.file.Sync()
}

// Close closes the heap file
func (p *HeapFilePager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return nil
	}

	if err := p.file.Sync(); err != nil {
		p.file.Close()
		p.file = nil
		return fmt.Errorf("failed to sync before close: %w", err)
	}

	err := p.file.Close()
	p.file = nil
	return err
}

// TotalPages returns the total number of pages in the heap file
func (p *HeapFilePager) TotalPages() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nextPage - 1
}
