package heapfile

import (
	"KestrelDB/types"
	"fmt"
)

// readPage reads a 4KB page from disk at the given page number using the pager
func (hf *HeapFile) readPage(pageNo uint32) ([]byte, error) {
	return hf.pager.ReadPage(int64(pageNo))
}

// writePage writes a 4KB page to disk at the given page number using the pager
func (hf *HeapFile) writePage(pageNo uint32, page []byte) error {
	return hf.pager.WritePage(int64(pageNo), page)
}

// initializePage initializes a new empty page with header and empty slot directory
func (hf *HeapFile) initializePage(pageNo uint32) error {
	page := make([]byte, PageSize)

	header := PageHeader{
		FileID:      hf.fileID,
		PageNo:      pageNo,
		FreePtr:     PageHeaderSize, // Start data area right after header
		NumRows:     0,
		NumRowsFree: PageSize - PageHeaderSize,
		IsPageFull:  0,
		SlotCount:   0, // No slots initially
	}

	writePageHeader(page, &header)

	return hf.writePage(pageNo, page)
}

// findSuitablePage finds a page with enough space for the required row size
func (hf *HeapFile) findSuitablePage(requiredSpace uint16) (uint32, error) {
	totalPages := uint32(hf.pager.TotalPages())

	for pageNo := uint32(1); pageNo <= totalPages; pageNo++ {
		page, err := hf.readPage(pageNo)
		if err != nil {
			return 0, err
		}

		header := readPageHeader(page)

		if header.IsPageFull != 0 {
			continue
		}

		availableSpace := calculateFreeSpace(header)
		requiredWithSlot := requiredSpace + SlotSize // row + new slot entry

		if availableSpace >= requiredWithSlot {
			return pageNo, nil
		}
	}

	// No page found, create a new one
	newPageNo := totalPages + 1
	if err := hf.initializePage(newPageNo); err != nil {
		return 0, err
	}

	return newPageNo, nil
}

// insertRow inserts a row into the heap file and returns its record id.
// Caller holds hf.mu.
func (hf *HeapFile) insertRow(rowData []byte) (types.RecordID, error) {
	rowLen := uint16(len(rowData))
	maxRowSize := uint16(PageSize - PageHeaderSize - SlotSize)
	if rowLen == 0 {
		return types.RecordID{}, fmt.Errorf("empty row")
	}
	if rowLen > maxRowSize {
		return types.RecordID{}, fmt.Errorf("row too large: %d bytes (max: %d)", rowLen, maxRowSize)
	}

	pageNo, err := hf.findSuitablePage(rowLen)
	if err != nil {
		return types.RecordID{}, err
	}

	page, err := hf.readPage(pageNo)
	if err != nil {
		return types.RecordID{}, err
	}

	header := readPageHeader(page)

	rowOffset := header.FreePtr
	copy(page[rowOffset:rowOffset+rowLen], rowData)

	slotIndex := addSlot(page, rowOffset, rowLen)

	// Re-read header to get the updated SlotCount
	header = readPageHeader(page)

	header.FreePtr += rowLen
	header.NumRows++
	header.NumRowsFree = calculateFreeSpace(header)

	if header.NumRowsFree < (rowLen + SlotSize) {
		header.IsPageFull = 1
	}

	writePageHeader(page, header)

	if err := hf.writePage(pageNo, page); err != nil {
		return types.RecordID{}, err
	}

	return types.RecordID{
		PageNumber: pageNo,
		SlotNumber: slotIndex,
	}, nil
}

// getRow reads the row a record id points at. Caller holds hf.mu.
func (hf *HeapFile) getRow(rid types.RecordID) ([]byte, error) {
	page, err := hf.readPage(rid.PageNumber)
	if err != nil {
		return nil, err
	}

	slot := readSlot(page, rid.SlotNumber)
	if slot == nil {
		return nil, fmt.Errorf("slot %d not found in page %d", rid.SlotNumber, rid.PageNumber)
	}

	data := getRowData(page, slot)
	if data == nil {
		return nil, fmt.Errorf("slot %d in page %d is empty", rid.SlotNumber, rid.PageNumber)
	}

	// Copy out: the page buffer is reused
	row := make([]byte, len(data))
	copy(row, data)
	return row, nil
}

// InsertRow inserts a row and returns its record id
func (hf *HeapFile) InsertRow(rowData []byte) (types.RecordID, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.insertRow(rowData)
}

// GetRow reads the row a record id points at
func (hf *HeapFile) GetRow(rid types.RecordID) ([]byte, error) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return hf.getRow(rid)
}

// FileID returns the heap file's id
func (hf *HeapFile) FileID() uint32 {
	return hf.fileID
}

// FilePath returns the path of the heap file on disk
func (hf *HeapFile) FilePath() string {
	return hf.filePath
}
